package client

import "context"

// TaskService handles background task API calls
type TaskService struct {
	client *Client
}

// List returns the names of the registered background tasks
func (s *TaskService) List(ctx context.Context) ([]string, error) {
	var result struct {
		Tasks []string `json:"tasks"`
	}
	if err := s.client.doRequest(ctx, "GET", "/api/v1/tasks", nil, &result); err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

// Run triggers one task immediately
func (s *TaskService) Run(ctx context.Context, name string) error {
	return s.client.doRequest(ctx, "POST", "/api/v1/tasks/"+name+"/run", nil, nil)
}
