package hostelbites

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation needs a valid session
	// and there is none, or it has expired.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the session's role may not perform the
	// operation.
	ErrForbidden = errors.New("forbidden")
	// ErrMissingUserID is returned when the token carries no usable user id.
	ErrMissingUserID = errors.New("session has no user id")
	// ErrCartEmpty is returned by Checkout when there is nothing to order.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrInFlight is returned when a single-flight operation is already
	// running.
	ErrInFlight = errors.New("operation already in progress")
	// ErrInvalidToken is returned by Login when the backend issues a token
	// without usable claims.
	ErrInvalidToken = errors.New("backend issued an unusable token")
	// ErrNotStarted is returned by operations that read session or cart
	// state before Start.
	ErrNotStarted = errors.New("app not started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("app closed")
	// ErrBuilderUsed is returned by a second Build on the same Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrInvalidQuantity is returned for non-positive stock or cart quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
)
