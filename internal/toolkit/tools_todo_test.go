package toolkit

import (
	"encoding/json"
	"testing"
)

func TestTodoWriteToolReplacesList(t *testing.T) {
	list := NewTodoList()
	tool := TodoWriteTool(list)

	args, _ := json.Marshal(todoWriteParams{Todos: []TodoItem{
		{ID: "1", Title: "write tests", Status: TodoInProgress},
		{ID: "2", Title: "ship it", Status: TodoPending},
	}})
	if _, err := tool.Handler(newTestContext(), args); err != nil {
		t.Fatalf("Handler: %v", err)
	}

	items := list.Items()
	if len(items) != 2 || items[0].ID != "1" || items[1].Status != TodoPending {
		t.Errorf("unexpected list state: %+v", items)
	}
}

func TestTodoWriteToolRejectsMultipleInProgress(t *testing.T) {
	list := NewTodoList()
	tool := TodoWriteTool(list)

	args, _ := json.Marshal(todoWriteParams{Todos: []TodoItem{
		{ID: "1", Title: "a", Status: TodoInProgress},
		{ID: "2", Title: "b", Status: TodoInProgress},
	}})
	if _, err := tool.Handler(newTestContext(), args); err == nil {
		t.Error("expected an error for two in_progress items")
	}
}

func TestTodoWriteToolRejectsInvalidStatus(t *testing.T) {
	list := NewTodoList()
	tool := TodoWriteTool(list)

	args, _ := json.Marshal(todoWriteParams{Todos: []TodoItem{
		{ID: "1", Title: "a", Status: "bogus"},
	}})
	if _, err := tool.Handler(newTestContext(), args); err == nil {
		t.Error("expected an error for an invalid status value")
	}
}

func TestTodoReadToolReflectsWrittenState(t *testing.T) {
	list := NewTodoList()
	writeTool := TodoWriteTool(list)
	readTool := TodoReadTool(list)

	args, _ := json.Marshal(todoWriteParams{Todos: []TodoItem{
		{ID: "1", Title: "write tests", Status: TodoPending, Description: "cover the todo tool"},
	}})
	if _, err := writeTool.Handler(newTestContext(), args); err != nil {
		t.Fatalf("write Handler: %v", err)
	}

	out, err := readTool.Handler(newTestContext(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("read Handler: %v", err)
	}
	if !contains(out, "write tests") || !contains(out, "cover the todo tool") {
		t.Errorf("unexpected todo_read output: %q", out)
	}
}

func TestTodoReadToolReportsEmptyList(t *testing.T) {
	list := NewTodoList()
	readTool := TodoReadTool(list)

	out, err := readTool.Handler(newTestContext(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	if out != "Todo list is empty." {
		t.Errorf("expected empty-list message, got %q", out)
	}
}
