package rpc

// PingRequest carries a caller-chosen payload the worker must echo back.
// Verifying the echo catches half-open connections that still accept RPCs.
type PingRequest struct {
	Payload string `json:"payload"`
}

// PingResponse echoes the request payload.
type PingResponse struct {
	Payload string `json:"payload"`
}

// ExecuteModuleRequest dispatches one node task to a worker.
type ExecuteModuleRequest struct {
	TaskID         string            `json:"task_id"`
	Module         string            `json:"module"`
	Params         map[string]string `json:"params,omitempty"`
	Files          map[string]string `json:"files,omitempty"`
	ControllerAddr string            `json:"controller_addr"`
}

// ExecuteModuleResponse reports the task's discrete outcome code.
type ExecuteModuleResponse struct {
	Outcome string `json:"outcome"`
}

// ImportProjectRequest carries a project definition document.
type ImportProjectRequest struct {
	Definition []byte `json:"definition"`
}

// ImportProjectResponse returns the stored project's identifiers.
type ImportProjectResponse struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// StartProjectRequest starts execution of an imported project.
type StartProjectRequest struct {
	Slug string `json:"slug"`
}

// StartProjectResponse acknowledges the start.
type StartProjectResponse struct{}

// StopProjectRequest aborts the currently running project.
type StopProjectRequest struct{}

// StopProjectResponse acknowledges the stop request.
type StopProjectResponse struct{}

// ShutdownRequest asks the controller to stop gracefully.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct{}

// KillRequest asks the controller to terminate immediately.
type KillRequest struct{}

// KillResponse acknowledges the kill request.
type KillResponse struct{}

// RequestTransferSlotRequest asks the controller to open a one-shot upload
// slot for a result file produced by the given task.
type RequestTransferSlotRequest struct {
	TaskID   string `json:"task_id"`
	FileName string `json:"file_name"`
}

// RequestTransferSlotResponse carries the upload token and the TCP address
// of the result transfer server.
type RequestTransferSlotResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}
