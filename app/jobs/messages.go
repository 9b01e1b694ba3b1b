package jobs

import "fmt"

// response payloads shared by the http api and agent tools

// ErrorPayload is {"error": msg}
func ErrorPayload(msg string) map[string]string { return map[string]string{"error": msg} }

// MessagePayload is {"message": msg}
func MessagePayload(msg string) map[string]string { return map[string]string{"message": msg} }

// UpdateNotFoundPayload is returned when status update finds no record
func UpdateNotFoundPayload(id string) map[string]string {
	return map[string]string{"error": "Job not found", "id": id}
}

// DeletedByIDMessage confirms delete by id
func DeletedByIDMessage(id string) string { return fmt.Sprintf("Job '%s' deleted successfully.", id) }

// NotFoundByIDMessage reports delete by id with no match
func NotFoundByIDMessage(id string) string { return fmt.Sprintf("Job with id '%s' not found.", id) }

// DeletedByRoleMessage confirms delete by role
func DeletedByRoleMessage(role string) string { return fmt.Sprintf("Job '%s' deleted successfully.", role) }

// NotFoundByRoleMessage reports delete by role with no match
func NotFoundByRoleMessage(role string) string { return fmt.Sprintf("Job with role '%s' not found.", role) }
