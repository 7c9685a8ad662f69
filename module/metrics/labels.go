package metrics

const (
	LabelAction   = "action"
	LabelStatus   = "status"
	LabelResult   = "result"
	LabelReason   = "reason"
	LabelEndpoint = "endpoint"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
