// Package stylize submits processing tasks to the hosted image model.
package stylize

import (
	"context"
	"fmt"
	"net/url"

	"github.com/doorbash/stylize-services/api/domain"
	"github.com/replicate/replicate-go"
)

type ReplicateStylizer struct {
	client     *replicate.Client
	version    string
	webhookURL string
	secret     string
}

// Submit creates a prediction whose completion is reported to the webhook
// endpoint of the API.
func (s *ReplicateStylizer) Submit(ctx context.Context, task *domain.ProcessingTask, template *domain.Template) (string, error) {
	input := BuildInput(task, template)
	webhook := &replicate.Webhook{
		URL:    WebhookURL(s.webhookURL, task.ID, s.secret),
		Events: []replicate.WebhookEventType{replicate.WebhookEventCompleted},
	}
	prediction, err := s.client.CreatePrediction(ctx, s.version, input, webhook, false)
	if err != nil {
		return "", fmt.Errorf("create prediction for task %s: %w", task.ID, err)
	}
	return prediction.ID, nil
}

func BuildInput(task *domain.ProcessingTask, template *domain.Template) replicate.PredictionInput {
	input := replicate.PredictionInput{
		"prompt":     template.StylePrompt,
		"style_type": template.StyleType,
	}
	if len(task.InputImages) == 1 {
		input["image"] = task.InputImages[0]
	} else {
		input["images"] = task.InputImages
	}
	return input
}

func WebhookURL(base string, taskID string, secret string) string {
	q := url.Values{}
	q.Set("task", taskID)
	if secret != "" {
		q.Set("secret", secret)
	}
	return base + "/webhooks/replicate?" + q.Encode()
}

func NewReplicateStylizer(token string, version string, webhookBaseURL string, secret string) (*ReplicateStylizer, error) {
	if version == "" {
		return nil, fmt.Errorf("model version is required")
	}
	client, err := replicate.NewClient(replicate.WithToken(token))
	if err != nil {
		return nil, err
	}
	return &ReplicateStylizer{
		client:     client,
		version:    version,
		webhookURL: webhookBaseURL,
		secret:     secret,
	}, nil
}

// OutputURLs flattens a prediction output into image URLs. Models return
// either a single URL or a list of them.
func OutputURLs(output interface{}) []string {
	switch v := output.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []interface{}:
		urls := make([]string, 0, len(v))
		for _, o := range v {
			if s, ok := o.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	}
	return nil
}

// ErrorMessage renders the error of a failed prediction.
func ErrorMessage(predictionError interface{}) string {
	switch v := predictionError.(type) {
	case nil:
		return "prediction failed"
	case string:
		return v
	}
	return fmt.Sprint(predictionError)
}
