package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
)

func TestMemoryStore_ModuleLookup(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java Programming", Category: catalog.ModuleJava, OrderIndex: 1}
	if err := store.SaveModule(ctx, m); err != nil {
		t.Fatalf("SaveModule() error = %v", err)
	}
	if m.ID == 0 {
		t.Error("SaveModule() did not assign an ID")
	}

	found, err := store.FindModulesByCategory(ctx, catalog.ModuleJava)
	if err != nil {
		t.Fatalf("FindModulesByCategory() error = %v", err)
	}
	if len(found) != 1 || found[0].ID != m.ID {
		t.Errorf("FindModulesByCategory() = %+v, want module %d", found, m.ID)
	}

	none, _ := store.FindModulesByCategory(ctx, catalog.ModuleSpring)
	if len(none) != 0 {
		t.Errorf("FindModulesByCategory(SPRING) = %d modules, want 0", len(none))
	}
}

func TestMemoryStore_SaveModule_InvalidCategory(t *testing.T) {
	store := catalog.NewMemoryStore()

	err := store.SaveModule(context.Background(), &catalog.Module{Name: "x", Category: "COBOL"})
	if err == nil {
		t.Error("SaveModule() should reject unknown category")
	}
}

func TestMemoryStore_TopicNaturalKey(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java", Category: catalog.ModuleJava}
	_ = store.SaveModule(ctx, m)

	topic := &catalog.Topic{ModuleID: m.ID, Title: "Variables", Published: true}
	if err := store.SaveTopic(ctx, topic); err != nil {
		t.Fatalf("SaveTopic() error = %v", err)
	}

	got, found, err := store.FindTopicByModuleAndTitle(ctx, m.ID, "Variables")
	if err != nil || !found {
		t.Fatalf("FindTopicByModuleAndTitle() found = %v, err = %v", found, err)
	}
	if got.ID != topic.ID {
		t.Errorf("ID = %d, want %d", got.ID, topic.ID)
	}

	if err := store.SaveTopic(ctx, &catalog.Topic{ModuleID: m.ID, Title: "Variables"}); err == nil {
		t.Error("SaveTopic() should reject a duplicate (module, title)")
	}

	_, found, _ = store.FindTopicByModuleAndTitle(ctx, m.ID+100, "Variables")
	if found {
		t.Error("FindTopicByModuleAndTitle() should not match another module")
	}
}

func TestMemoryStore_SaveTopic_UnknownModule(t *testing.T) {
	store := catalog.NewMemoryStore()

	err := store.SaveTopic(context.Background(), &catalog.Topic{ModuleID: 42, Title: "Orphan"})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("SaveTopic() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_QuestionsOrdered(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java", Category: catalog.ModuleJava}
	_ = store.SaveModule(ctx, m)
	topic := &catalog.Topic{ModuleID: m.ID, Title: "Streams"}
	_ = store.SaveTopic(ctx, topic)

	for _, idx := range []int{3, 1, 2} {
		q := &catalog.Question{TopicID: topic.ID, Title: "Q", OrderIndex: idx}
		if err := store.SaveQuestion(ctx, q); err != nil {
			t.Fatalf("SaveQuestion() error = %v", err)
		}
	}

	got, err := store.FindQuestionsByTopicOrdered(ctx, topic.ID)
	if err != nil {
		t.Fatalf("FindQuestionsByTopicOrdered() error = %v", err)
	}
	for i, q := range got {
		if q.OrderIndex != i+1 {
			t.Errorf("questions[%d].OrderIndex = %d, want %d", i, q.OrderIndex, i+1)
		}
	}
}

func TestMemoryStore_InTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java", Category: catalog.ModuleJava}
	_ = store.SaveModule(ctx, m)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx catalog.Store) error {
		if err := tx.SaveTopic(ctx, &catalog.Topic{ModuleID: m.ID, Title: "Lost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	if _, found, _ := store.FindTopicByModuleAndTitle(ctx, m.ID, "Lost"); found {
		t.Error("topic written inside a failed transaction should be rolled back")
	}
}

func TestMemoryStore_InTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java", Category: catalog.ModuleJava}
	_ = store.SaveModule(ctx, m)

	func() {
		defer func() {
			if v := recover(); v != "driver exploded" {
				t.Errorf("recovered %v, want the original panic value", v)
			}
		}()
		_ = store.InTx(ctx, func(tx catalog.Store) error {
			if err := tx.SaveTopic(ctx, &catalog.Topic{ModuleID: m.ID, Title: "Half written"}); err != nil {
				return err
			}
			panic("driver exploded")
		})
	}()

	if _, found, _ := store.FindTopicByModuleAndTitle(ctx, m.ID, "Half written"); found {
		t.Error("topic written before a panic should be rolled back")
	}
	if modules, _, _ := store.Counts(); modules != 1 {
		t.Errorf("modules = %d, want the pre-transaction module kept", modules)
	}

	// The store stays usable after the panic.
	if err := store.SaveTopic(ctx, &catalog.Topic{ModuleID: m.ID, Title: "Half written"}); err != nil {
		t.Errorf("SaveTopic() after panic error = %v", err)
	}
}

func TestMemoryStore_InTx_NestedRollbackKeepsOuter(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	m := &catalog.Module{Name: "Java", Category: catalog.ModuleJava}
	_ = store.SaveModule(ctx, m)

	err := store.InTx(ctx, func(tx catalog.Store) error {
		topic := &catalog.Topic{ModuleID: m.ID, Title: "Kept"}
		if err := tx.SaveTopic(ctx, topic); err != nil {
			return err
		}
		_ = tx.InTx(ctx, func(sp catalog.Store) error {
			_ = sp.SaveQuestion(ctx, &catalog.Question{TopicID: topic.ID, Title: "Dropped", OrderIndex: 1})
			return errors.New("savepoint failure")
		})
		return nil
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	_, topics, questions := store.Counts()
	if topics != 1 {
		t.Errorf("topics = %d, want 1", topics)
	}
	if questions != 0 {
		t.Errorf("questions = %d, want 0 after inner rollback", questions)
	}
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemoryStore()

	if _, found, _ := store.FindUserByUsername(ctx, "testuser"); found {
		t.Fatal("empty store should not find a user")
	}

	u := &catalog.User{Username: "testuser", Email: "test@example.com"}
	if err := store.SaveUser(ctx, u); err != nil {
		t.Fatalf("SaveUser() error = %v", err)
	}
	if err := store.SaveUser(ctx, &catalog.User{Username: "testuser"}); err == nil {
		t.Error("SaveUser() should reject a duplicate username")
	}

	got, found, err := store.FindUserByUsername(ctx, "testuser")
	if err != nil || !found {
		t.Fatalf("FindUserByUsername() found = %v, err = %v", found, err)
	}
	if got.Email != "test@example.com" {
		t.Errorf("Email = %q, want test@example.com", got.Email)
	}
}

func TestModuleType_Valid(t *testing.T) {
	tests := []struct {
		in   catalog.ModuleType
		want bool
	}{
		{catalog.ModuleJava, true},
		{catalog.ModuleDSA, true},
		{"java", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.want {
			t.Errorf("ModuleType(%q).Valid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
