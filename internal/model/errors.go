package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token related errors
	ErrMissingToken  = errors.New("token missing")
	ErrInvalidToken  = errors.New("token invalid or expired")
	ErrTokenMismatch = errors.New("refresh token does not match active session")

	// Permission/Access related errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotProjectOwner    = errors.New("not the owner of this project")
	ErrNotAssignedSeller  = errors.New("not the seller assigned to this project")
	ErrStatusUpdateDenied = errors.New("only the buyer or the assigned seller can change the status")

	// Project lifecycle errors
	ErrProjectNotFound     = errors.New("project not found")
	ErrInvalidTransition   = errors.New("invalid project status transition")
	ErrNotAcceptingBids    = errors.New("this project is no longer accepting bids")
	ErrProjectNotDeletable = errors.New("only pending projects can be deleted")
	ErrSellerNotFound      = errors.New("seller not found")

	// Bid related errors
	ErrBidAlreadyPlaced = errors.New("you have already placed a bid on this project")

	// Deliverable related errors
	ErrDeliverableNotFound = errors.New("no deliverables found for this project")
	ErrDeliverableEmpty    = errors.New("please upload a file or provide a link")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
