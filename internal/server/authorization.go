package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/nluhub/nluhub/internal/api"
	"github.com/nluhub/nluhub/internal/authz"
	"github.com/nluhub/nluhub/internal/models"
)

// ResolveAuthorization returns the caller's authorization on a repository.
// Anonymous callers get the public view. Resolving another principal
// requires admin.
func (s *Server) ResolveAuthorization(
	ctx context.Context,
	req *connect.Request[api.ResolveAuthorizationRequest],
) (*connect.Response[api.ResolveAuthorizationResponse], error) {
	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}

	principalID := callerOrAnonymous(ctx)
	target := principalID
	if req.Msg.PrincipalID != "" {
		target, err = parseID("principal", req.Msg.PrincipalID)
		if err != nil {
			return nil, err
		}
	}

	if target != principalID {
		if principalID == uuid.Nil {
			return nil, toConnectError(errUnauthenticated)
		}
		if _, err := s.resolver.RequireAdmin(ctx, repositoryID, principalID); err != nil {
			return nil, toConnectError(err)
		}
	}

	view, err := s.resolver.Resolve(ctx, repositoryID, target)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(toAuthorization(view)), nil
}

// SetRole grants a repository role directly. Only admins may call it.
func (s *Server) SetRole(
	ctx context.Context,
	req *connect.Request[api.SetRoleRequest],
) (*connect.Response[api.SetRoleResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}
	targetID, err := parseID("principal", req.Msg.PrincipalID)
	if err != nil {
		return nil, err
	}

	role, ok := models.ParseRole(req.Msg.Role)
	if !ok {
		return nil, toConnectError(fmt.Errorf("%w: %q", authz.ErrInvalidRole, req.Msg.Role))
	}

	rec, err := s.resolver.SetRole(ctx, repositoryID, principalID, targetID, role)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SetRoleResponse{
		AuthorizationID: rec.AuthorizationID.String(),
		Role:            rec.Role.String(),
	}), nil
}

// CreateAccessRequest asks the repository admins for access.
func (s *Server) CreateAccessRequest(
	ctx context.Context,
	req *connect.Request[api.CreateAccessRequestRequest],
) (*connect.Response[api.CreateAccessRequestResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}

	request, err := s.access.Request(ctx, repositoryID, principalID, req.Msg.Text)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.CreateAccessRequestResponse{Request: toAccessRequest(request)}), nil
}

// ApproveRequest grants the requester the user role.
func (s *Server) ApproveRequest(
	ctx context.Context,
	req *connect.Request[api.ApproveRequestRequest],
) (*connect.Response[api.ApproveRequestResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	requestID, err := parseID("request", req.Msg.RequestID)
	if err != nil {
		return nil, err
	}

	request, err := s.access.Approve(ctx, requestID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.ApproveRequestResponse{Request: toAccessRequest(request)}), nil
}

// RejectRequest deletes a request and any authorization it granted.
func (s *Server) RejectRequest(
	ctx context.Context,
	req *connect.Request[api.RejectRequestRequest],
) (*connect.Response[api.RejectRequestResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	requestID, err := parseID("request", req.Msg.RequestID)
	if err != nil {
		return nil, err
	}

	if err := s.access.Reject(ctx, requestID, principalID); err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.RejectRequestResponse{}), nil
}

// ListAccessRequests returns the requests of a repository to its admins.
func (s *Server) ListAccessRequests(
	ctx context.Context,
	req *connect.Request[api.ListAccessRequestsRequest],
) (*connect.Response[api.ListAccessRequestsResponse], error) {
	principalID, err := caller(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	repositoryID, err := parseID("repository", req.Msg.RepositoryID)
	if err != nil {
		return nil, err
	}

	requests, err := s.access.List(ctx, repositoryID, principalID)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]api.AccessRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, toAccessRequest(r))
	}

	return connect.NewResponse(&api.ListAccessRequestsResponse{Requests: out}), nil
}
