package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

// gatewayClient implements Client against the bot gateway sidecar, which owns
// the actual platform connection. The wire format is plain JSON over HTTP.
type gatewayClient struct {
	http *req.Client
}

// NewGatewayClient builds a Client talking to the gateway at baseURL.
func NewGatewayClient(baseURL, token string, timeout time.Duration) Client {
	c := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetCommonBearerAuthToken(token)
	return &gatewayClient{http: c}
}

type gatewayError struct {
	Message string `json:"message"`
}

func (g *gatewayClient) do(ctx context.Context, method, path string, body, out any) error {
	r := g.http.R().SetContext(ctx)
	if body != nil {
		r.SetBody(body)
	}
	var gwErr gatewayError
	r.SetErrorResult(&gwErr)
	if out != nil {
		r.SetSuccessResult(out)
	}
	resp, err := r.Send(method, path)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	if resp.IsErrorState() {
		if gwErr.Message != "" {
			return fmt.Errorf("gateway %s %s: %s", method, path, gwErr.Message)
		}
		return fmt.Errorf("gateway %s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}

func (g *gatewayClient) CreateWorkspace(ctx context.Context, input CreateWorkspaceInput) (*Workspace, error) {
	var ws Workspace
	if err := g.do(ctx, "POST", "/workspaces", input, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (g *gatewayClient) MoveWorkspace(ctx context.Context, workspaceID, parentID string) error {
	return g.do(ctx, "PATCH", "/workspaces/"+workspaceID, map[string]string{"parent_id": parentID}, nil)
}

func (g *gatewayClient) RenameWorkspace(ctx context.Context, workspaceID, name string) error {
	return g.do(ctx, "PATCH", "/workspaces/"+workspaceID, map[string]string{"name": name}, nil)
}

func (g *gatewayClient) EditWorkspaceAccess(ctx context.Context, workspaceID string, overwrites []AccessOverwrite) error {
	return g.do(ctx, "PUT", "/workspaces/"+workspaceID+"/access", map[string]any{"overwrites": overwrites}, nil)
}

func (g *gatewayClient) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	return g.do(ctx, "DELETE", "/workspaces/"+workspaceID, nil, nil)
}

func (g *gatewayClient) ListWorkspaces(ctx context.Context, parentID string) ([]Workspace, error) {
	var out struct {
		Workspaces []Workspace `json:"workspaces"`
	}
	if err := g.do(ctx, "GET", "/partitions/"+parentID+"/workspaces", nil, &out); err != nil {
		return nil, err
	}
	return out.Workspaces, nil
}

func (g *gatewayClient) SendMessage(ctx context.Context, workspaceID string, msg OutgoingMessage) (*Message, error) {
	var m Message
	if err := g.do(ctx, "POST", "/workspaces/"+workspaceID+"/messages", msg, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (g *gatewayClient) EditMessage(ctx context.Context, workspaceID, messageID string, msg OutgoingMessage) error {
	return g.do(ctx, "PATCH", "/workspaces/"+workspaceID+"/messages/"+messageID, msg, nil)
}

func (g *gatewayClient) DeleteMessage(ctx context.Context, workspaceID, messageID string) error {
	return g.do(ctx, "DELETE", "/workspaces/"+workspaceID+"/messages/"+messageID, nil, nil)
}

func (g *gatewayClient) History(ctx context.Context, workspaceID string, limit int) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	path := fmt.Sprintf("/workspaces/%s/messages?limit=%d&order=desc", workspaceID, limit)
	if err := g.do(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (g *gatewayClient) GrantRole(ctx context.Context, userID, roleID string) error {
	return g.do(ctx, "PUT", "/members/"+userID+"/roles/"+roleID, nil, nil)
}

func (g *gatewayClient) RevokeRole(ctx context.Context, userID, roleID string) error {
	return g.do(ctx, "DELETE", "/members/"+userID+"/roles/"+roleID, nil, nil)
}

func (g *gatewayClient) SendDirect(ctx context.Context, userID, content string) error {
	return g.do(ctx, "POST", "/members/"+userID+"/direct-messages", map[string]string{"content": content}, nil)
}
