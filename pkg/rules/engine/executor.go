package engine

import (
	"context"
	"log/slog"
)

// Notifier is the notification sink collaborator. Show is fire-and-forget
// from the engine's perspective; a returned error is logged, never
// propagated.
type Notifier interface {
	Show(ctx context.Context, message string) error
}

// DocumentStore is the vault collaborator for note files. Create fails when
// the path already exists; Modify fails when it does not. The engine treats
// both failure modes as loggable and non-fatal.
type DocumentStore interface {
	Create(ctx context.Context, path, content string) error
	Modify(ctx context.Context, path, content string) error
	Read(ctx context.Context, path string) (string, error)
}

// ItemWriter is the task/project registry collaborator. The engine supplies
// computed field values; the registry owns id generation and storage
// format.
type ItemWriter interface {
	CreateItem(ctx context.Context, fields map[string]string) (string, error)
	UpdateItem(ctx context.Context, id string, fields map[string]string) error
}

// ActionExecutor executes a single rule action against an event context.
type ActionExecutor interface {
	// Execute performs the action's side effect. A returned error marks the
	// action as failed; sibling actions and rules still run.
	Execute(ctx context.Context, action Action, ectx Context) error
}

// DefaultExecutor dispatches actions to the collaborator interfaces. It
// computes what to do (interpolating templated parameters against the event
// context); the collaborators own how the effect is persisted or shown.
type DefaultExecutor struct {
	notifier Notifier
	store    DocumentStore
	items    ItemWriter
	logger   *slog.Logger
}

// NewDefaultExecutor creates an executor over the given collaborators. Any
// collaborator may be nil; actions that need a missing collaborator fail
// individually at execution time instead of failing construction.
func NewDefaultExecutor(notifier Notifier, store DocumentStore, items ItemWriter, logger *slog.Logger) *DefaultExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultExecutor{
		notifier: notifier,
		store:    store,
		items:    items,
		logger:   logger,
	}
}

// Execute runs one action. Unknown action types are skipped with a warning
// so that a newer rule file does not break an older engine.
func (e *DefaultExecutor) Execute(ctx context.Context, action Action, ectx Context) error {
	switch action.Type {
	case ActionSendNotification:
		return e.sendNotification(ctx, action, ectx)

	case ActionCreateItem:
		return e.createItem(ctx, action, ectx)

	case ActionUpdateItem:
		return e.updateItem(ctx, action, ectx)

	case ActionUpdateStatus:
		return e.updateStatus(ctx, action, ectx)

	case ActionCreateNote:
		return e.createNote(ctx, action, ectx)

	case ActionSendEmail:
		// Reserved for a future mail collaborator.
		e.logger.Info("send_email action is not implemented, skipping",
			"to", action.StringParameter("to"),
		)
		return nil

	default:
		e.logger.Warn("unknown action type, skipping",
			"type", string(action.Type),
		)
		return nil
	}
}

func (e *DefaultExecutor) sendNotification(ctx context.Context, action Action, ectx Context) error {
	if e.notifier == nil {
		return ErrNotifierUnavailable
	}

	message := Interpolate(action.StringParameter("message"), ectx)
	return e.notifier.Show(ctx, message)
}

func (e *DefaultExecutor) createItem(ctx context.Context, action Action, ectx Context) error {
	if e.items == nil {
		return ErrItemWriterUnavailable
	}

	fields := e.resolveFields(action.Parameters, ectx)
	id, err := e.items.CreateItem(ctx, fields)
	if err != nil {
		return err
	}

	e.logger.Debug("item created", "item_id", id)
	return nil
}

func (e *DefaultExecutor) updateItem(ctx context.Context, action Action, ectx Context) error {
	if e.items == nil {
		return ErrItemWriterUnavailable
	}

	id := e.resolveItemID(action, ectx)

	fields := e.resolveFields(action.Parameters, ectx)
	delete(fields, "item")

	return e.items.UpdateItem(ctx, id, fields)
}

func (e *DefaultExecutor) updateStatus(ctx context.Context, action Action, ectx Context) error {
	if e.items == nil {
		return ErrItemWriterUnavailable
	}

	id := e.resolveItemID(action, ectx)
	status := Interpolate(action.StringParameter("status"), ectx)

	return e.items.UpdateItem(ctx, id, map[string]string{"status": status})
}

func (e *DefaultExecutor) createNote(ctx context.Context, action Action, ectx Context) error {
	if e.store == nil {
		return ErrDocumentStoreUnavailable
	}

	path := Interpolate(action.StringParameter("path"), ectx)
	content := Interpolate(action.StringParameter("content"), ectx)

	return e.store.Create(ctx, path, content)
}

// resolveItemID resolves the target item id from the action's "item"
// parameter, falling back to the task id carried in the event context.
func (e *DefaultExecutor) resolveItemID(action Action, ectx Context) string {
	if raw := action.StringParameter("item"); raw != "" {
		return Interpolate(raw, ectx)
	}
	return ectx.Lookup("task.id").String()
}

// resolveFields interpolates every parameter into its final string form.
func (e *DefaultExecutor) resolveFields(params map[string]Value, ectx Context) map[string]string {
	fields := make(map[string]string, len(params))
	for key, value := range params {
		if s, ok := value.AsString(); ok {
			fields[key] = Interpolate(s, ectx)
			continue
		}
		fields[key] = value.String()
	}
	return fields
}
