// Package platform wraps the outbound messaging APIs (LINE, Facebook
// Messenger). Tokens are per-tenant and passed per call; the clients here
// hold only HTTP plumbing.
package platform

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Profile is the end-user profile a platform exposes to the bot.
type Profile struct {
	DisplayName string
	PictureURL  string
}

func newLogger(component string) *logrus.Entry {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.WithField("component", component)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}
