package toolkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/serialx/vibecore/internal/core"
)

// TodoStatus is the lifecycle state of a single todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
)

// TodoItem is one entry in the process-local todo list.
type TodoItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      TodoStatus `json:"status"`
	Description string     `json:"description,omitempty"`
}

// TodoList is the per-process (not per-session-persisted) ordered todo
// list the agent can read and rewrite wholesale, per SPEC_FULL.md's
// `todo_write` design note. Emptied on /clear via Reset (the Orchestrator
// owns the instance, not this package).
type TodoList struct {
	mu    sync.Mutex
	items []TodoItem
}

// NewTodoList builds an empty todo list.
func NewTodoList() *TodoList {
	return &TodoList{}
}

// Items returns a snapshot of the current list.
func (l *TodoList) Items() []TodoItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TodoItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *TodoList) replace(items []TodoItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = items
}

// Reset empties the list. Called by the Orchestrator on /clear.
func (l *TodoList) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}

type todoWriteParams struct {
	Todos []TodoItem `json:"todos" jsonschema:"required,description=The complete list of todo items"`
}

// TodoWriteTool returns the `todo_write` ToolDescriptor bound to list:
// overwrites the list wholesale. Grounded on batalabs-muxd's todoWriteTool,
// adapted from a map[string]any args shape to a typed/schema-reflected one.
func TodoWriteTool(list *TodoList) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "todo_write",
		Description: "Overwrite the todo list with a new set of items. Each item has an id, title, status (pending/in_progress/completed), and optional description. Use this to track multi-step plans.",
		Schema:      mustSchema(&todoWriteParams{}),
		Handler: func(_ core.ToolContext, raw json.RawMessage) (string, error) {
			var p todoWriteParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			for _, item := range p.Todos {
				if item.ID == "" || item.Title == "" {
					return "", fmt.Errorf("every todo item requires an id and a title")
				}
				switch item.Status {
				case TodoPending, TodoInProgress, TodoCompleted:
				default:
					return "", fmt.Errorf("invalid status %q for item %q", item.Status, item.ID)
				}
			}
			inProgress := 0
			for _, item := range p.Todos {
				if item.Status == TodoInProgress {
					inProgress++
				}
			}
			if inProgress > 1 {
				return "", fmt.Errorf("only one todo item may be in_progress at a time, got %d", inProgress)
			}

			list.replace(p.Todos)
			return fmt.Sprintf("Todo list updated: %d item(s)", len(p.Todos)), nil
		},
	}
}

// TodoReadTool returns a `todo_read` ToolDescriptor bound to list: not part
// of SPEC_FULL.md's named tool list but kept alongside todo_write since the
// model otherwise has no way to recall the list it wrote in an earlier turn
// once it scrolls out of the visible context.
func TodoReadTool(list *TodoList) core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "todo_read",
		Description: "Read the current todo list. Returns all items with their id, status, and title.",
		Schema:      mustSchema(&struct{}{}),
		Handler: func(_ core.ToolContext, _ json.RawMessage) (string, error) {
			items := list.Items()
			if len(items) == 0 {
				return "Todo list is empty.", nil
			}
			var b strings.Builder
			for _, item := range items {
				fmt.Fprintf(&b, "[%s] %s - %s", item.ID, item.Status, item.Title)
				if item.Description != "" {
					fmt.Fprintf(&b, " (%s)", item.Description)
				}
				b.WriteString("\n")
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}
