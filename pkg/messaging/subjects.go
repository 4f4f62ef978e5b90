package messaging

// EmailQueuedSubject is the JetStream subject outbound emails are queued on.
const EmailQueuedSubject = "email.queued"
