package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin/binding"
	"github.com/youfak/plaud-bridge/internal/util/plauderror"
)

// Operation is one member of the closed set of Plaud API calls. Each variant
// knows its HTTP method, endpoint path and request body shape.
type Operation interface {
	Method() string
	Endpoint() string
	// Body returns the JSON request body, or nil for body-less calls.
	Body() (map[string]any, error)
}

type DeviceGet struct {
	DeviceID string `json:"device_id" binding:"required"`
}

func (op DeviceGet) Method() string   { return http.MethodGet }
func (op DeviceGet) Endpoint() string { return "/api/devices/" + op.DeviceID }
func (op DeviceGet) Body() (map[string]any, error) {
	return nil, nil
}

type DeviceBind struct {
	DeviceSerialNumber string `json:"device_serial_number" binding:"required"`
	UserID             string `json:"user_id" binding:"required"`
}

func (op DeviceBind) Method() string   { return http.MethodPost }
func (op DeviceBind) Endpoint() string { return "/api/devices/bind" }
func (op DeviceBind) Body() (map[string]any, error) {
	return map[string]any{
		"device_serial_number": op.DeviceSerialNumber,
		"user_id":              op.UserID,
	}, nil
}

type DeviceUnbind struct {
	DeviceSerialNumber string `json:"device_serial_number" binding:"required"`
	UserID             string `json:"user_id" binding:"required"`
}

func (op DeviceUnbind) Method() string   { return http.MethodPost }
func (op DeviceUnbind) Endpoint() string { return "/api/devices/unbind" }
func (op DeviceUnbind) Body() (map[string]any, error) {
	return map[string]any{
		"device_serial_number": op.DeviceSerialNumber,
		"user_id":              op.UserID,
	}, nil
}

type FileGenerateUploadURLs struct {
	FileSize int64  `json:"filesize" binding:"required"`
	FileType string `json:"filetype" binding:"required"`
}

func (op FileGenerateUploadURLs) Method() string { return http.MethodPost }
func (op FileGenerateUploadURLs) Endpoint() string {
	return "/api/files/upload-s3/generate-presigned-urls"
}
func (op FileGenerateUploadURLs) Body() (map[string]any, error) {
	return map[string]any{
		"filesize": op.FileSize,
		"filetype": op.FileType,
	}, nil
}

type FileCompleteUpload struct {
	OwnerID  string          `json:"owner_id" binding:"required"`
	FileID   string          `json:"file_id" binding:"required"`
	UploadID string          `json:"upload_id" binding:"required"`
	PartList json.RawMessage `json:"part_list" binding:"required"`
	FileType string          `json:"filetype" binding:"required"`
	FileMD5  string          `json:"file_md5" binding:"required"`
	Name     string          `json:"name" binding:"required"`
}

func (op FileCompleteUpload) Method() string   { return http.MethodPost }
func (op FileCompleteUpload) Endpoint() string { return "/api/files/upload-s3/complete-upload" }
func (op FileCompleteUpload) Body() (map[string]any, error) {
	// part_list is forwarded as a decoded array, never double-encoded.
	parts, err := decodeJSONArray("part_list", op.PartList)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"owner_id":  op.OwnerID,
		"file_id":   op.FileID,
		"upload_id": op.UploadID,
		"part_list": parts,
		"filetype":  op.FileType,
		"file_md5":  op.FileMD5,
		"name":      op.Name,
	}, nil
}

type WorkflowSubmit struct {
	Workflows json.RawMessage `json:"workflows" binding:"required"`
	Metadata  json.RawMessage `json:"metadata"`
	Version   string          `json:"version"`
}

func (op WorkflowSubmit) Method() string   { return http.MethodPost }
func (op WorkflowSubmit) Endpoint() string { return "/api/workflows/submit" }
func (op WorkflowSubmit) Body() (map[string]any, error) {
	workflows, err := decodeJSONArray("workflows", op.Workflows)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"workflows": workflows,
	}
	if len(op.Metadata) > 0 {
		metadata, err := decodeJSONObject("metadata", op.Metadata)
		if err != nil {
			return nil, err
		}
		body["metadata"] = metadata
	}
	if op.Version != "" {
		body["version"] = op.Version
	}
	return body, nil
}

type WorkflowGetStatus struct {
	WorkflowID string `json:"workflow_id" binding:"required"`
}

func (op WorkflowGetStatus) Method() string   { return http.MethodGet }
func (op WorkflowGetStatus) Endpoint() string { return "/api/workflows/" + op.WorkflowID + "/status" }
func (op WorkflowGetStatus) Body() (map[string]any, error) {
	return nil, nil
}

type WorkflowGetResult struct {
	WorkflowID string `json:"workflow_id" binding:"required"`
}

func (op WorkflowGetResult) Method() string   { return http.MethodGet }
func (op WorkflowGetResult) Endpoint() string { return "/api/workflows/" + op.WorkflowID + "/result" }
func (op WorkflowGetResult) Body() (map[string]any, error) {
	return nil, nil
}

// ResolveOperation maps a (resource, operation) pair plus raw parameters to a
// typed operation. Unknown pairs and missing required parameters fail before
// anything reaches the wire; the required-field rules are the same binding
// tags the HTTP endpoints enforce.
func ResolveOperation(resource, operation string, params json.RawMessage) (Operation, error) {
	build := func(op Operation) (Operation, error) {
		if len(params) == 0 {
			params = json.RawMessage(`{}`)
		}
		if err := json.Unmarshal(params, op); err != nil {
			return nil, &plauderror.ConfigurationError{
				Message: fmt.Sprintf("invalid parameters for %s.%s: %v", resource, operation, err),
			}
		}
		if err := binding.Validator.ValidateStruct(op); err != nil {
			return nil, &plauderror.ConfigurationError{
				Message: fmt.Sprintf("missing or invalid parameters for %s.%s: %v", resource, operation, err),
			}
		}
		return op, nil
	}

	switch resource {
	case "device":
		switch operation {
		case "get":
			return build(&DeviceGet{})
		case "bind":
			return build(&DeviceBind{})
		case "unbind":
			return build(&DeviceUnbind{})
		}
	case "file":
		switch operation {
		case "generateUploadUrls":
			return build(&FileGenerateUploadURLs{})
		case "completeUpload":
			return build(&FileCompleteUpload{})
		}
	case "workflow":
		switch operation {
		case "submit":
			return build(&WorkflowSubmit{})
		case "getStatus":
			return build(&WorkflowGetStatus{})
		case "getResult":
			return build(&WorkflowGetResult{})
		}
	default:
		return nil, &plauderror.ConfigurationError{
			Message: fmt.Sprintf("unknown resource: %s", resource),
		}
	}
	return nil, &plauderror.ConfigurationError{
		Message: fmt.Sprintf("unknown operation for resource %s: %s", resource, operation),
	}
}

func decodeJSONArray(field string, raw json.RawMessage) ([]any, error) {
	var out []any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &plauderror.ConfigurationError{
			Message: fmt.Sprintf("%s must be a JSON array: %v", field, err),
		}
	}
	return out, nil
}

func decodeJSONObject(field string, raw json.RawMessage) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &plauderror.ConfigurationError{
			Message: fmt.Sprintf("%s must be a JSON object: %v", field, err),
		}
	}
	return out, nil
}
