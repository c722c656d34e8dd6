package nutrition

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type fakeRecipes struct {
	mu      sync.Mutex
	recipes map[int64]model.Recipe
	stored  chan model.NutritionData
	getErr  error
}

func (f *fakeRecipes) Get(householdID, id int64) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.recipes[id]
	if !ok || r.HouseholdID != householdID {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeRecipes) UpsertNutrition(n model.NutritionData) error {
	f.stored <- n
	return nil
}

type deadLetter struct {
	task   Task
	reason string
	err    error
}

type chanSink chan deadLetter

func (s chanSink) DeadLetter(task Task, reason string, err error) {
	s <- deadLetter{task, reason, err}
}

func newFakeRecipes() *fakeRecipes {
	r := soupRecipe(1)
	r.HouseholdID = 1
	empty := model.Recipe{ID: 2, HouseholdID: 1, Title: "Water"}
	return &fakeRecipes{
		recipes: map[int64]model.Recipe{1: r, 2: empty},
		stored:  make(chan model.NutritionData, 4),
	}
}

func TestQueueProcessesTask(t *testing.T) {
	recipes := newFakeRecipes()
	sink := make(chanSink, 4)
	q := NewQueue(recipes, &countingExtractor{}, sink, 4, 1, slog.Default())
	q.Start(context.Background())
	defer q.Stop()

	task, ok := q.Enqueue(1, 1)
	if !ok {
		t.Fatal("enqueue rejected")
	}
	if task.ID.String() == "" {
		t.Error("task has no id")
	}

	select {
	case n := <-recipes.stored:
		if n.RecipeID != 1 || n.Calories != 200 {
			t.Errorf("stored = %+v", n)
		}
	case dl := <-sink:
		t.Fatalf("dead-lettered: %s %v", dl.reason, dl.err)
	case <-time.After(2 * time.Second):
		t.Fatal("task not processed")
	}
}

func TestQueueDeadLetters(t *testing.T) {
	tests := []struct {
		name       string
		household  int64
		recipe     int64
		extractor  Extractor
		getErr     error
		wantReason string
	}{
		{"missing recipe", 1, 99, &countingExtractor{}, nil, "recipe not found"},
		{"other household", 2, 1, &countingExtractor{}, nil, "recipe not found"},
		{"no ingredients", 1, 2, &countingExtractor{}, nil, "recipe has no ingredients"},
		{"extract error", 1, 1, &countingExtractor{err: errors.New("boom")}, nil, "extract"},
		{"not configured", 1, 1, nil, nil, "extract"},
		{"load error", 1, 1, &countingExtractor{}, errors.New("db locked"), "load recipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recipes := newFakeRecipes()
			recipes.getErr = tt.getErr
			sink := make(chanSink, 4)
			q := NewQueue(recipes, tt.extractor, sink, 4, 1, slog.Default())
			q.Start(context.Background())
			defer q.Stop()

			q.Enqueue(tt.household, tt.recipe)

			select {
			case dl := <-sink:
				if dl.reason != tt.wantReason {
					t.Errorf("reason = %q, want %q", dl.reason, tt.wantReason)
				}
				if dl.task.RecipeID != tt.recipe {
					t.Errorf("task recipe = %d, want %d", dl.task.RecipeID, tt.recipe)
				}
			case n := <-recipes.stored:
				t.Fatalf("unexpectedly stored %+v", n)
			case <-time.After(2 * time.Second):
				t.Fatal("no dead letter")
			}
		})
	}
}

func TestQueueFullNeverBlocks(t *testing.T) {
	sink := make(chanSink, 4)
	q := NewQueue(newFakeRecipes(), &countingExtractor{}, sink, 1, 1, slog.Default())
	// Not started, so nothing drains the buffer.

	if _, ok := q.Enqueue(1, 1); !ok {
		t.Fatal("first enqueue rejected")
	}

	done := make(chan bool)
	go func() {
		_, ok := q.Enqueue(1, 1)
		done <- ok
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("second enqueue accepted into a full queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	dl := <-sink
	if dl.reason != "queue full" {
		t.Errorf("reason = %q, want queue full", dl.reason)
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1", q.Len())
	}
}

func TestQueueStopWithoutStart(t *testing.T) {
	q := NewQueue(newFakeRecipes(), nil, nil, 0, 0, nil)
	q.Stop()
}
