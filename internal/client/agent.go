package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"fleetchat/internal/types"
)

// RunAgent asks the diagnostic agent a question. It may block for minutes;
// the agent client carries its own, longer timeout.
func (c *Client) RunAgent(ctx context.Context, req RunAgentRequest) (*AgentResult, error) {
	params := url.Values{}
	params.Set("query_reported", req.Query)
	params.Set("thread_id", req.ThreadID)
	params.Set("filters", pythonListLiteral(req.Filters))
	params.Set("preferences", pythonListLiteral(req.Preferences))
	var result AgentResult
	if err := c.doJSON(ctx, c.agentHTTP, http.MethodGet, c.agentURL+"/run-agent?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListAgentRuns(ctx context.Context) ([]types.AgentRun, error) {
	var runs []types.AgentRun
	if err := c.doJSON(ctx, c.http, http.MethodGet, c.agentURL+"/get-sessions", nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) ResumeAgent(ctx context.Context, threadID string) (*types.AgentRun, error) {
	params := url.Values{}
	params.Set("thread_id", strings.TrimSpace(threadID))
	var run types.AgentRun
	if err := c.doJSON(ctx, c.http, http.MethodGet, c.agentURL+"/resume-agent?"+params.Encode(), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) GetRunDocuments(ctx context.Context, threadID string) (types.RunDocuments, error) {
	params := url.Values{}
	params.Set("thread_id", strings.TrimSpace(threadID))
	var docs types.RunDocuments
	if err := c.doJSON(ctx, c.http, http.MethodGet, c.agentURL+"/get-run-documents?"+params.Encode(), nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
