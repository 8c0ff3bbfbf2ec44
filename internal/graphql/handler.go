package graphql

import (
	"log/slog"
	"net/http"

	"github.com/graphql-go/handler"

	"initguard/internal/storage"
)

// NewHandler creates a new GraphQL HTTP handler
func NewHandler(store storage.Storage, logger *slog.Logger) (http.Handler, error) {
	schema, err := NewSchema(store, logger)
	if err != nil {
		return nil, err
	}

	h := handler.New(&handler.Config{
		Schema:     &schema.schema,
		Pretty:     true,
		GraphiQL:   true,
		Playground: false,
	})

	return h, nil
}
