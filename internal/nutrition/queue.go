package nutrition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/larder/internal/model"
)

const (
	DefaultQueueSize = 100
	DefaultWorkers   = 2
	taskTimeout      = 60 * time.Second
)

// Task asks for nutrition to be extracted for one recipe.
type Task struct {
	ID          uuid.UUID `json:"id"`
	RecipeID    int64     `json:"recipe_id"`
	HouseholdID int64     `json:"household_id"`
}

// DeadLetterSink receives tasks that were dropped or failed.
type DeadLetterSink interface {
	DeadLetter(task Task, reason string, err error)
}

// LogSink writes dead letters to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) DeadLetter(task Task, reason string, err error) {
	s.Logger.Warn("nutrition task dead-lettered",
		"task_id", task.ID.String(),
		"recipe_id", task.RecipeID,
		"household_id", task.HouseholdID,
		"reason", reason,
		"error", err,
	)
}

// RecipeSource loads recipes and stores extraction results.
type RecipeSource interface {
	Get(householdID, id int64) (*model.Recipe, error)
	UpsertNutrition(n model.NutritionData) error
}

// Queue dispatches extraction tasks to a fixed pool of workers. Each task is
// attempted at most once and Enqueue never blocks the caller.
type Queue struct {
	mu        sync.RWMutex
	tasks     chan Task
	workers   int
	recipes   RecipeSource
	extractor Extractor
	sink      DeadLetterSink
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewQueue(recipes RecipeSource, extractor Extractor, sink DeadLetterSink, size, workers int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if extractor == nil {
		extractor = NoopExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nutrition")
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	return &Queue{
		tasks:     make(chan Task, size),
		workers:   workers,
		recipes:   recipes,
		extractor: extractor,
		sink:      sink,
		logger:    logger,
	}
}

// Enqueue schedules extraction for a recipe. When the buffer is full the task
// is dead-lettered and Enqueue returns false.
func (q *Queue) Enqueue(householdID, recipeID int64) (Task, bool) {
	task := Task{ID: uuid.New(), RecipeID: recipeID, HouseholdID: householdID}
	select {
	case q.tasks <- task:
		q.logger.Debug("nutrition task queued", "task_id", task.ID.String(), "recipe_id", recipeID)
		return task, true
	default:
		q.sink.DeadLetter(task, "queue full", nil)
		return task, false
	}
}

// Len returns the number of tasks waiting for a worker.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Start launches the workers.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	q.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-q.tasks:
					q.process(ctx, task)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(q.done)
	}()
}

// Stop cancels the workers and waits for them to exit. Tasks still buffered
// are abandoned.
func (q *Queue) Stop() {
	q.mu.RLock()
	cancel := q.cancel
	done := q.done
	q.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (q *Queue) process(ctx context.Context, task Task) {
	ctx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	recipe, err := q.recipes.Get(task.HouseholdID, task.RecipeID)
	if err != nil {
		q.sink.DeadLetter(task, "load recipe", err)
		return
	}
	if recipe == nil {
		q.sink.DeadLetter(task, "recipe not found", nil)
		return
	}
	if len(recipe.Ingredients) == 0 {
		q.sink.DeadLetter(task, "recipe has no ingredients", nil)
		return
	}

	n, err := q.extractor.Extract(ctx, *recipe)
	if err != nil {
		q.sink.DeadLetter(task, "extract", err)
		return
	}
	n.RecipeID = recipe.ID
	if err := q.recipes.UpsertNutrition(*n); err != nil {
		q.sink.DeadLetter(task, "store nutrition", fmt.Errorf("recipe %d: %w", recipe.ID, err))
		return
	}
	q.logger.Info("nutrition extracted", "task_id", task.ID.String(), "recipe_id", recipe.ID, "calories", n.Calories)
}
