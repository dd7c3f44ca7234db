package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campfirehq/intake-service/internal/chat"
	"github.com/campfirehq/intake-service/internal/config"
	"github.com/campfirehq/intake-service/internal/domain"
	"github.com/campfirehq/intake-service/internal/repository"
)

// fakeChat is an in-memory chat.Client. Messages are stored newest first,
// matching the History contract.
type fakeChat struct {
	mu         sync.Mutex
	workspaces map[string]*chat.Workspace
	order      []string
	messages   map[string][]chat.Message
	dms        map[string][]string
	grants     []string
	access     map[string]int
	edits      int
	nextID     int
	clock      time.Time

	createErr error
	dmErr     error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		workspaces: make(map[string]*chat.Workspace),
		messages:   make(map[string][]chat.Message),
		dms:        make(map[string][]string),
		access:     make(map[string]int),
		clock:      time.Now().UTC(),
	}
}

func (f *fakeChat) addWorkspace(parentID, name, topic string) *chat.Workspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	ws := &chat.Workspace{
		ID:       fmt.Sprintf("ws-%d", f.nextID),
		Name:     name,
		Topic:    topic,
		ParentID: parentID,
		Link:     fmt.Sprintf("https://chat.example/ws-%d", f.nextID),
	}
	f.workspaces[ws.ID] = ws
	f.order = append(f.order, ws.ID)
	return ws
}

func (f *fakeChat) seedMessage(workspaceID string, msg chat.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("msg-%d", f.nextID)
	}
	// prepend: newest first
	f.messages[workspaceID] = append([]chat.Message{msg}, f.messages[workspaceID]...)
}

func (f *fakeChat) workspace(id string) chat.Workspace {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ws, ok := f.workspaces[id]; ok {
		return *ws
	}
	return chat.Workspace{}
}

func (f *fakeChat) messagesIn(workspaceID string) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.Message, len(f.messages[workspaceID]))
	copy(out, f.messages[workspaceID])
	return out
}

func (f *fakeChat) CreateWorkspace(_ context.Context, input chat.CreateWorkspaceInput) (*chat.Workspace, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	ws := f.addWorkspace(input.ParentID, input.Name, input.Topic)
	out := *ws
	return &out, nil
}

func (f *fakeChat) MoveWorkspace(_ context.Context, workspaceID, parentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.workspaces[workspaceID]
	if !ok {
		return fmt.Errorf("workspace %s not found", workspaceID)
	}
	ws.ParentID = parentID
	return nil
}

func (f *fakeChat) RenameWorkspace(_ context.Context, workspaceID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.workspaces[workspaceID]
	if !ok {
		return fmt.Errorf("workspace %s not found", workspaceID)
	}
	ws.Name = name
	return nil
}

func (f *fakeChat) EditWorkspaceAccess(_ context.Context, workspaceID string, _ []chat.AccessOverwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access[workspaceID]++
	return nil
}

func (f *fakeChat) DeleteWorkspace(_ context.Context, workspaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.workspaces, workspaceID)
	for i, id := range f.order {
		if id == workspaceID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeChat) ListWorkspaces(_ context.Context, parentID string) ([]chat.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Workspace
	for _, id := range f.order {
		if ws, ok := f.workspaces[id]; ok && ws.ParentID == parentID {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (f *fakeChat) SendMessage(_ context.Context, workspaceID string, msg chat.OutgoingMessage) (*chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := chat.Message{
		ID:        fmt.Sprintf("msg-%d", f.nextID),
		AuthorID:  "bot",
		Automated: true,
		Content:   msg.Content,
		Timestamp: f.clock,
	}
	f.messages[workspaceID] = append([]chat.Message{stored}, f.messages[workspaceID]...)
	out := stored
	return &out, nil
}

func (f *fakeChat) EditMessage(_ context.Context, workspaceID, messageID string, msg chat.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages[workspaceID] {
		if f.messages[workspaceID][i].ID == messageID {
			f.messages[workspaceID][i].Content = msg.Content
			f.edits++
			return nil
		}
	}
	return fmt.Errorf("message %s not found", messageID)
}

func (f *fakeChat) DeleteMessage(_ context.Context, workspaceID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[workspaceID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			f.messages[workspaceID] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeChat) History(_ context.Context, workspaceID string, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[workspaceID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeChat) GrantRole(_ context.Context, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants = append(f.grants, userID+":"+roleID)
	return nil
}

func (f *fakeChat) RevokeRole(_ context.Context, userID, roleID string) error {
	return nil
}

func (f *fakeChat) SendDirect(_ context.Context, userID, content string) error {
	if f.dmErr != nil {
		return f.dmErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

type memQuotaRepo struct {
	mu    sync.Mutex
	state *domain.QuotaState
	saves int
}

func (r *memQuotaRepo) Load(context.Context) (*domain.QuotaState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil, pgx.ErrNoRows
	}
	out := *r.state
	return &out, nil
}

func (r *memQuotaRepo) Save(_ context.Context, state *domain.QuotaState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *state
	r.state = &copied
	r.saves++
	return nil
}

type memSuspensionRepo struct {
	mu       sync.Mutex
	schedule *domain.SuspensionSchedule
}

func (r *memSuspensionRepo) Load(context.Context) (*domain.SuspensionSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schedule == nil {
		return nil, pgx.ErrNoRows
	}
	out := *r.schedule
	return &out, nil
}

func (r *memSuspensionRepo) Save(_ context.Context, schedule *domain.SuspensionSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *schedule
	r.schedule = &copied
	return nil
}

func (r *memSuspensionRepo) Clear(ctx context.Context) error {
	return r.Save(ctx, &domain.SuspensionSchedule{})
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []repository.AuditEntry
}

func (r *memAuditRepo) Create(_ context.Context, entry *repository.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListByApplicant(_ context.Context, applicantID string, limit int) ([]repository.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.AuditEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ApplicantID == applicantID {
			out = append(out, r.entries[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type memExportRepo struct {
	mu      sync.Mutex
	exports []repository.WorkspaceExport
}

func (r *memExportRepo) Create(_ context.Context, export *repository.WorkspaceExport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	export.ID = fmt.Sprintf("export-%d", len(r.exports)+1)
	export.ExportedAt = time.Now().UTC()
	r.exports = append(r.exports, *export)
	return nil
}

func testChatCfg() config.ChatConfig {
	return config.ChatConfig{
		PanelChannelID:  "chan-panel",
		FirstPrimaryID:  "cat-first",
		FirstOverflowID: "cat-overflow",
		SecondReviewID:  "cat-second",
		ArchiveID:       "cat-archive",
		RequiredRoleID:  "role-member",
		ApprovedRoleID:  "role-approved",
		StaffRoleID:     "role-staff",
	}
}

func testIntakeCfg() config.IntakeConfig {
	cfg := config.IntakeConfig{
		DailyLimit:         60,
		OpenHour:           0,
		CloseHour:          0, // equal hours: always open
		CategoryCapacity:   50,
		HistoryLimit:       100,
		RemindAfter:        24 * time.Hour,
		ArchiveAfter:       48 * time.Hour,
		ConfirmGrace:       time.Hour,
		WorkspaceOpTimeout: 5 * time.Second,
		RatePerMinute:      5,
	}
	return cfg.WithLocation(time.UTC)
}
