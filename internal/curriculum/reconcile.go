package curriculum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

// FileResult counts what reconciling one document changed.
type FileResult struct {
	TopicCreated     bool
	QuestionsCreated int
	QuestionsSkipped int
	QuestionsFailed  int
}

// Reconciler decides per extracted record whether it already exists by
// natural key, and persists it only if it does not.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler logging through logger; nil uses the
// default logger.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger.With("component", "reconciler")}
}

// ResolveModule returns the first module of spec's category, creating it
// when none exists.
func (r *Reconciler) ResolveModule(ctx context.Context, store catalog.Store, spec ModuleSpec) (catalog.Module, error) {
	existing, err := store.FindModulesByCategory(ctx, spec.Category)
	if err != nil {
		return catalog.Module{}, fmt.Errorf("find module %s: %w", spec.Category, err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	m := catalog.Module{
		Name:        spec.Name,
		Description: spec.Description,
		Category:    spec.Category,
		OrderIndex:  spec.Order,
	}
	if err := store.SaveModule(ctx, &m); err != nil {
		return catalog.Module{}, fmt.Errorf("create module %s: %w", spec.Category, err)
	}
	r.logger.Info("module created", "category", m.Category, "name", m.Name, "id", m.ID)
	return m, nil
}

// ReconcileTopic persists doc as a topic of module together with its
// questions, in one transaction. An existing (module, title) pair is left
// untouched and its questions are not rescanned. A failing question is
// rolled back to its savepoint and does not affect its siblings.
func (r *Reconciler) ReconcileTopic(ctx context.Context, store catalog.Store, module catalog.Module, doc Document) (FileResult, error) {
	var res FileResult

	err := store.InTx(ctx, func(tx catalog.Store) error {
		res = FileResult{}

		_, found, err := tx.FindTopicByModuleAndTitle(ctx, module.ID, doc.Title)
		if err != nil {
			return fmt.Errorf("find topic %q: %w", doc.Title, err)
		}
		if found {
			r.logger.Info("topic already exists", "title", doc.Title, "file", doc.FileName)
			return nil
		}

		topic := catalog.Topic{
			ModuleID:         module.ID,
			Title:            doc.Title,
			Description:      doc.Description,
			Difficulty:       doc.Difficulty,
			EstimatedMinutes: doc.EstimatedMinutes,
			Content:          doc.Content,
			OrderIndex:       doc.OrderIndex,
			Published:        true,
		}
		if err := tx.SaveTopic(ctx, &topic); err != nil {
			return fmt.Errorf("save topic %q: %w", doc.Title, err)
		}
		res.TopicCreated = true

		existing, err := tx.FindQuestionsByTopicOrdered(ctx, topic.ID)
		if err != nil {
			return fmt.Errorf("find questions for %q: %w", doc.Title, err)
		}
		positions := newPositionCounter(existing)

		for block := range doc.Questions {
			if positions.seen(block.Title) {
				res.QuestionsSkipped++
				continue
			}

			q := catalog.Question{
				TopicID:     topic.ID,
				Title:       block.Title,
				Description: block.Description,
				Solution:    block.Solution,
				Type:        catalog.QuestionInterview,
				Difficulty:  ExtractDifficulty(block.Block),
				OrderIndex:  positions.next(),
			}
			err := tx.InTx(ctx, func(sp catalog.Store) error {
				return sp.SaveQuestion(ctx, &q)
			})
			if err != nil {
				r.logger.Error("error saving question", "title", block.Title, "topic", doc.Title, "error", err)
				res.QuestionsFailed++
				continue
			}
			positions.commit(block.Title)
			res.QuestionsCreated++
			r.logger.Debug("question loaded", "title", q.Title, "position", q.OrderIndex)
		}

		return nil
	})
	if err != nil {
		return FileResult{}, err
	}

	if res.TopicCreated {
		r.logger.Info("topic loaded",
			"title", doc.Title,
			"lines", len(splitLines(doc.Content)),
			"questions", res.QuestionsCreated,
		)
	}
	return res, nil
}

// positionCounter hands out 1-based question positions for one topic,
// seeded from the questions already stored. Only committed saves advance
// it, so a failed save leaves no gap.
type positionCounter struct {
	count  int
	titles map[string]bool
}

func newPositionCounter(existing []catalog.Question) *positionCounter {
	c := &positionCounter{
		count:  len(existing),
		titles: make(map[string]bool, len(existing)),
	}
	for _, q := range existing {
		c.titles[q.Title] = true
	}
	return c
}

func (c *positionCounter) seen(title string) bool {
	return c.titles[title]
}

func (c *positionCounter) next() int {
	return c.count + 1
}

func (c *positionCounter) commit(title string) {
	c.count++
	c.titles[title] = true
}
