package util

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

func SendNotification(
	ctx context.Context,
	credentialsFile string,
	topic string,
	data map[string]string,
) error {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing app: %w", err)
	}
	c, err := app.Messaging(ctx)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, &messaging.Message{
		Data:  data,
		Topic: topic,
	})
	if err != nil {
		return err
	}
	return nil
}

// FCMNotifier sends task updates to the "user_<id>" topic the web app
// subscribes each signed-in device to.
type FCMNotifier struct {
	credentialsFile string
}

func (f *FCMNotifier) NotifyUser(ctx context.Context, userID string, data map[string]string) error {
	if f.credentialsFile == "" {
		log.Debug().Str("user", userID).Msg("fcm credentials not configured, skipping notification")
		return nil
	}
	return SendNotification(ctx, f.credentialsFile, UserTopic(userID), data)
}

func UserTopic(userID string) string {
	return "user_" + userID
}

func NewFCMNotifier(credentialsFile string) *FCMNotifier {
	return &FCMNotifier{
		credentialsFile: credentialsFile,
	}
}
