// Package queue moves password reset notifications through RabbitMQ so the
// request path does not wait on the mail relay.
package queue

import "time"

// ResetQueueName is the queue the publisher and consumer agree on.
const ResetQueueName = "mail.password_reset"

// PasswordResetRequested is published once per reset request. Secret is the
// plaintext reset secret; it is only ever sent with transient delivery so it
// is not written to the broker's disk.
type PasswordResetRequested struct {
	Email       string    `json:"email"`
	Secret      string    `json:"secret"`
	RequestedAt time.Time `json:"requested_at"`
}
