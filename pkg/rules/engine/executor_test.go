package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeNotifier records shown messages and can be made to fail.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeNotifier) Show(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) shown() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// fakeStore is an in-memory document store honoring the path-exists and
// not-found failure contracts.
type fakeStore struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string]string)}
}

func (f *fakeStore) Create(_ context.Context, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; ok {
		return fmt.Errorf("path already exists: %s", path)
	}
	f.files[path] = content
	return nil
}

func (f *fakeStore) Modify(_ context.Context, path, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; !ok {
		return fmt.Errorf("path not found: %s", path)
	}
	f.files[path] = content
	return nil
}

func (f *fakeStore) Read(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("path not found: %s", path)
	}
	return content, nil
}

// fakeItems records item writes.
type fakeItems struct {
	mu      sync.Mutex
	created []map[string]string
	updated map[string][]map[string]string
	err     error
}

func newFakeItems() *fakeItems {
	return &fakeItems{updated: make(map[string][]map[string]string)}
}

func (f *fakeItems) CreateItem(_ context.Context, fields map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, fields)
	return fmt.Sprintf("item-%d", len(f.created)), nil
}

func (f *fakeItems) UpdateItem(_ context.Context, id string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updated[id] = append(f.updated[id], fields)
	return nil
}

func TestExecutorSendNotification(t *testing.T) {
	notifier := &fakeNotifier{}
	exec := NewDefaultExecutor(notifier, nil, nil, nil)

	action := Action{
		Type: ActionSendNotification,
		Parameters: map[string]Value{
			"message": String("High priority task created: {{task.title}}"),
		},
	}

	if err := exec.Execute(context.Background(), action, taskContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	shown := notifier.shown()
	if len(shown) != 1 || shown[0] != "High priority task created: Write report" {
		t.Errorf("unexpected notifications: %v", shown)
	}
}

func TestExecutorNotificationKeepsUnresolvedToken(t *testing.T) {
	notifier := &fakeNotifier{}
	exec := NewDefaultExecutor(notifier, nil, nil, nil)

	// Context without task.title: the token must stay visible.
	ectx := Context{
		"task": Map(map[string]Value{"priority": String("high")}),
	}
	action := Action{
		Type: ActionSendNotification,
		Parameters: map[string]Value{
			"message": String("High priority task created: {{task.title}}"),
		},
	}

	if err := exec.Execute(context.Background(), action, ectx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	shown := notifier.shown()
	if len(shown) != 1 || shown[0] != "High priority task created: {{task.title}}" {
		t.Errorf("unexpected notifications: %v", shown)
	}
}

func TestExecutorCreateNote(t *testing.T) {
	store := newFakeStore()
	exec := NewDefaultExecutor(nil, store, nil, nil)

	action := Action{
		Type: ActionCreateNote,
		Parameters: map[string]Value{
			"path":    String("Digests/{{date}}.md"),
			"content": String("# Digest for {{date}}\n"),
		},
	}

	if err := exec.Execute(context.Background(), action, taskContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	content, err := store.Read(context.Background(), "Digests/2026-08-31.md")
	if err != nil {
		t.Fatalf("note not created: %v", err)
	}
	if content != "# Digest for 2026-08-31\n" {
		t.Errorf("unexpected note content: %q", content)
	}

	// Path collision is reported as an error, to be logged by the caller.
	if err := exec.Execute(context.Background(), action, taskContext()); err == nil {
		t.Error("expected error on duplicate note path")
	}
}

func TestExecutorCreateItem(t *testing.T) {
	items := newFakeItems()
	exec := NewDefaultExecutor(nil, nil, items, nil)

	action := Action{
		Type: ActionCreateItem,
		Parameters: map[string]Value{
			"title":    String("Follow up on {{task.title}}"),
			"priority": String("medium"),
			"estimate": Number(2),
		},
	}

	if err := exec.Execute(context.Background(), action, taskContext()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(items.created) != 1 {
		t.Fatalf("created %d items, want 1", len(items.created))
	}
	got := items.created[0]
	if got["title"] != "Follow up on Write report" {
		t.Errorf("title = %q", got["title"])
	}
	if got["priority"] != "medium" {
		t.Errorf("priority = %q", got["priority"])
	}
	if got["estimate"] != "2" {
		t.Errorf("estimate = %q", got["estimate"])
	}
}

func TestExecutorUpdateStatus(t *testing.T) {
	items := newFakeItems()
	exec := NewDefaultExecutor(nil, nil, items, nil)

	ectx := Context{
		"task": Map(map[string]Value{
			"id": String("task-42"),
		}),
	}
	action := Action{
		Type: ActionUpdateStatus,
		Parameters: map[string]Value{
			"status": String("in-progress"),
		},
	}

	if err := exec.Execute(context.Background(), action, ectx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	updates := items.updated["task-42"]
	if len(updates) != 1 || updates[0]["status"] != "in-progress" {
		t.Errorf("unexpected updates: %v", items.updated)
	}
}

func TestExecutorUpdateItemExplicitTarget(t *testing.T) {
	items := newFakeItems()
	exec := NewDefaultExecutor(nil, nil, items, nil)

	action := Action{
		Type: ActionUpdateItem,
		Parameters: map[string]Value{
			"item":     String("{{task.id}}"),
			"priority": String("low"),
		},
	}
	ectx := Context{
		"task": Map(map[string]Value{"id": String("task-7")}),
	}

	if err := exec.Execute(context.Background(), action, ectx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	updates := items.updated["task-7"]
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	if _, ok := updates[0]["item"]; ok {
		t.Error("item target parameter leaked into fields")
	}
	if updates[0]["priority"] != "low" {
		t.Errorf("priority = %q", updates[0]["priority"])
	}
}

func TestExecutorSendEmailIsNoOp(t *testing.T) {
	exec := NewDefaultExecutor(nil, nil, nil, nil)
	action := Action{
		Type:       ActionSendEmail,
		Parameters: map[string]Value{"to": String("someone@example.com")},
	}

	if err := exec.Execute(context.Background(), action, Context{}); err != nil {
		t.Errorf("send_email must never fail, got %v", err)
	}
}

func TestExecutorUnknownActionSkipped(t *testing.T) {
	exec := NewDefaultExecutor(nil, nil, nil, nil)
	action := Action{Type: ActionType("teleport_item")}

	if err := exec.Execute(context.Background(), action, Context{}); err != nil {
		t.Errorf("unknown action must be skipped without error, got %v", err)
	}
}

func TestExecutorMissingCollaborators(t *testing.T) {
	exec := NewDefaultExecutor(nil, nil, nil, nil)

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{
			name:   "notification without sink",
			action: Action{Type: ActionSendNotification},
			want:   ErrNotifierUnavailable,
		},
		{
			name:   "note without store",
			action: Action{Type: ActionCreateNote},
			want:   ErrDocumentStoreUnavailable,
		},
		{
			name:   "item without registry",
			action: Action{Type: ActionCreateItem},
			want:   ErrItemWriterUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.Execute(context.Background(), tt.action, Context{})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
