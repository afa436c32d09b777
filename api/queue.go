package api

// QueuedExecReq is an ExecReq delivered through a message queue. Progress
// messages are sent to ResponseQueueURL.
type QueuedExecReq struct {
	ExecReq
	ResponseQueueURL string `json:"responseQueueUrl"`
}
