package diagnostic

import (
	"context"
	"fmt"
	"strings"
	"time"

	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	authorizationclient "k8s.io/client-go/kubernetes/typed/authorization/v1"
)

// Permission is one verb on one resource the synchronizer relies on
type Permission struct {
	Verb        string
	Resource    string
	Subresource string
}

// String renders the permission the way `kubectl auth can-i` takes it
func (p Permission) String() string {
	if p.Subresource != "" {
		return p.Verb + " " + p.Resource + "/" + p.Subresource
	}
	return p.Verb + " " + p.Resource
}

// RequiredPermissions lists what Stage 1, Stage 2 and the log view call
var RequiredPermissions = []Permission{
	{Verb: "list", Resource: "namespaces"},
	{Verb: "list", Resource: "pods"},
	{Verb: "get", Resource: "pods"},
	{Verb: "get", Resource: "pods", Subresource: "log"},
}

// AccessStatus records whether the current identity holds one permission.
type AccessStatus struct {
	Permission Permission
	Allowed    bool
	Message    string
	CheckedAt  time.Time
}

// Hint returns a human-friendly remediation, empty when access is allowed.
func (s *AccessStatus) Hint() string {
	if s == nil || s.Allowed {
		return ""
	}

	message := s.Message
	if message == "" {
		message = fmt.Sprintf("current credentials cannot %s", s.Permission)
	}
	return fmt.Sprintf("%s • run `kubectl auth can-i %s -A` or grant the matching RBAC", message, s.Permission)
}

// CheckAccess performs one SelfSubjectAccessReview per permission, cluster wide.
func CheckAccess(ctx context.Context, client authorizationclient.AuthorizationV1Interface, perms []Permission) ([]*AccessStatus, error) {
	statuses := make([]*AccessStatus, 0, len(perms))

	for _, perm := range perms {
		sar := &authorizationv1.SelfSubjectAccessReview{
			Spec: authorizationv1.SelfSubjectAccessReviewSpec{
				ResourceAttributes: &authorizationv1.ResourceAttributes{
					Verb:        perm.Verb,
					Resource:    perm.Resource,
					Subresource: perm.Subresource,
					Group:       "",
				},
			},
		}

		resp, err := client.SelfSubjectAccessReviews().Create(ctx, sar, metav1.CreateOptions{})
		if err != nil {
			return statuses, fmt.Errorf("access review for %s: %w", perm, err)
		}

		status := &AccessStatus{
			Permission: perm,
			Allowed:    resp.Status.Allowed,
			CheckedAt:  time.Now(),
		}

		if !resp.Status.Allowed {
			var details []string
			if resp.Status.Reason != "" {
				details = append(details, resp.Status.Reason)
			}
			if resp.Status.EvaluationError != "" {
				details = append(details, resp.Status.EvaluationError)
			}
			status.Message = strings.TrimSpace(strings.Join(details, " • "))
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
