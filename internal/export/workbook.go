// Package export writes the catalog to an Excel workbook for editors.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

// Sheet names, in workbook order.
const (
	SheetModules   = "Modules"
	SheetTopics    = "Topics"
	SheetQuestions = "Questions"
)

var (
	moduleHeader   = []any{"ID", "Category", "Name", "Description", "Order"}
	topicHeader    = []any{"ID", "Module ID", "Module", "Title", "Description", "Difficulty", "Estimated Minutes", "Order", "Published", "Content Length"}
	questionHeader = []any{"ID", "Topic ID", "Topic", "Position", "Title", "Type", "Difficulty", "Description", "Solution"}
)

// Reader is the read side of the catalog used by the export.
type Reader interface {
	ListModules(ctx context.Context) ([]catalog.Module, error)
	ListTopics(ctx context.Context, moduleID int64) ([]catalog.Topic, error)
	FindQuestionsByTopicOrdered(ctx context.Context, topicID int64) ([]catalog.Question, error)
}

// Save writes the workbook to path.
func Save(ctx context.Context, store Reader, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := Write(ctx, store, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}
	slog.Info("catalog exported", "path", path)
	return nil
}

// Write renders every module, topic and question into an .xlsx workbook.
// Topic bodies are summarised by length; cells cap at 32767 characters.
func Write(ctx context.Context, store Reader, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetModules); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{SheetTopics, SheetQuestions} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	sheets := map[string]*sheetWriter{
		SheetModules:   {f: f, name: SheetModules},
		SheetTopics:    {f: f, name: SheetTopics},
		SheetQuestions: {f: f, name: SheetQuestions},
	}
	for name, header := range map[string][]any{
		SheetModules:   moduleHeader,
		SheetTopics:    topicHeader,
		SheetQuestions: questionHeader,
	} {
		if err := sheets[name].header(header, bold); err != nil {
			return err
		}
	}

	modules, err := store.ListModules(ctx)
	if err != nil {
		return fmt.Errorf("listing modules: %w", err)
	}

	for _, m := range modules {
		if err := sheets[SheetModules].row(m.ID, string(m.Category), m.Name, m.Description, m.OrderIndex); err != nil {
			return err
		}

		topics, err := store.ListTopics(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("listing topics of module %d: %w", m.ID, err)
		}
		for _, t := range topics {
			err := sheets[SheetTopics].row(t.ID, m.ID, m.Name, t.Title, t.Description, string(t.Difficulty),
				t.EstimatedMinutes, t.OrderIndex, t.Published, len(t.Content))
			if err != nil {
				return err
			}

			questions, err := store.FindQuestionsByTopicOrdered(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("listing questions of topic %d: %w", t.ID, err)
			}
			for _, q := range questions {
				err := sheets[SheetQuestions].row(q.ID, t.ID, t.Title, q.OrderIndex, q.Title, string(q.Type),
					string(q.Difficulty), q.Description, q.Solution)
				if err != nil {
					return err
				}
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f    *excelize.File
	name string
	next int
}

func (s *sheetWriter) header(values []any, style int) error {
	if err := s.row(values...); err != nil {
		return err
	}
	if err := s.f.SetRowStyle(s.name, 1, 1, style); err != nil {
		return fmt.Errorf("styling %s header: %w", s.name, err)
	}
	return s.f.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (s *sheetWriter) row(values ...any) error {
	s.next++
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		return err
	}
	if err := s.f.SetSheetRow(s.name, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", s.name, s.next, err)
	}
	return nil
}
