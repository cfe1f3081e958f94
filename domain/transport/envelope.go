package transport

import "context"

// Envelope is the single-resource wrapper the backend returns for most
// endpoints: the payload under "data" plus optional human-readable markers.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Payload returns the wrapped value, or a request failure when the
// envelope carries an error marker despite the 2xx status.
func (e Envelope[T]) Payload() (T, error) {
	if e.Error != "" {
		return e.Data, &Error{Kind: ErrRequest, Message: e.Error}
	}
	return e.Data, nil
}

// Paged is the collection wrapper the backend returns for list endpoints.
type Paged[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// GetEnveloped issues a GET against an envelope-wrapped endpoint and
// returns the unwrapped payload.
func GetEnveloped[T any](ctx context.Context, t Transport, path string, params map[string]string) (T, error) {
	env, err := Get[Envelope[T]](ctx, t, path, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return env.Payload()
}

// PostEnveloped issues a POST against an envelope-wrapped endpoint and
// returns the unwrapped payload.
func PostEnveloped[In, Out any](ctx context.Context, t Transport, path string, in In) (Out, error) {
	env, err := Post[In, Envelope[Out]](ctx, t, path, in)
	if err != nil {
		var zero Out
		return zero, err
	}
	return env.Payload()
}
