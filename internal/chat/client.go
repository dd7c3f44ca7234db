package chat

import (
	"context"
	"time"
)

// Workspace is a private review channel on the chat platform. The topic carries
// the ticket descriptor; the name prefix renders the ticket state.
type Workspace struct {
	ID       string
	Name     string
	Topic    string
	ParentID string
	Link     string
}

// Message is a single message inside a workspace. Automated marks messages
// authored by the service account.
type Message struct {
	ID        string
	AuthorID  string
	Automated bool
	Content   string
	Timestamp time.Time
}

// AccessOverwrite grants or denies named permissions to one identity or role.
type AccessOverwrite struct {
	TargetID string
	Allow    []string
	Deny     []string
}

// Button is an interactive control attached to an outgoing message.
type Button struct {
	Label    string
	CustomID string
	Disabled bool
}

// OutgoingMessage is content to post or edit in a workspace.
type OutgoingMessage struct {
	Content string
	Buttons []Button
}

// CreateWorkspaceInput describes a new workspace under a parent partition.
type CreateWorkspaceInput struct {
	Name       string
	Topic      string
	ParentID   string
	Overwrites []AccessOverwrite
}

// Client is the chat platform collaborator. Implementations talk to the actual
// platform; everything in this service depends only on this interface.
type Client interface {
	CreateWorkspace(ctx context.Context, input CreateWorkspaceInput) (*Workspace, error)
	MoveWorkspace(ctx context.Context, workspaceID, parentID string) error
	RenameWorkspace(ctx context.Context, workspaceID, name string) error
	EditWorkspaceAccess(ctx context.Context, workspaceID string, overwrites []AccessOverwrite) error
	DeleteWorkspace(ctx context.Context, workspaceID string) error

	// ListWorkspaces enumerates workspaces under a parent partition.
	ListWorkspaces(ctx context.Context, parentID string) ([]Workspace, error)

	SendMessage(ctx context.Context, workspaceID string, msg OutgoingMessage) (*Message, error)
	EditMessage(ctx context.Context, workspaceID, messageID string, msg OutgoingMessage) error
	DeleteMessage(ctx context.Context, workspaceID, messageID string) error

	// History returns up to limit messages, most recent first.
	History(ctx context.Context, workspaceID string, limit int) ([]Message, error)

	GrantRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error

	// SendDirect delivers a direct message. Callers treat failures as
	// best-effort: log and degrade, never propagate.
	SendDirect(ctx context.Context, userID, content string) error
}
