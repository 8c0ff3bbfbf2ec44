package graphql

import (
	"log/slog"
	"strconv"

	"github.com/graphql-go/graphql"

	"initguard/internal/storage"
)

// Schema defines the GraphQL schema and resolvers
type Schema struct {
	schema graphql.Schema
	store  storage.Storage
	logger *slog.Logger
}

// NewSchema creates a new GraphQL schema with the given storage
func NewSchema(store storage.Storage, logger *slog.Logger) (*Schema, error) {
	s := &Schema{
		store:  store,
		logger: logger,
	}

	outcomeEnum := graphql.NewEnum(graphql.EnumConfig{
		Name: "Outcome",
		Values: graphql.EnumValueConfigMap{
			"VALID":     &graphql.EnumValueConfig{Value: storage.OutcomeValid},
			"INVALID":   &graphql.EnumValueConfig{Value: storage.OutcomeInvalid},
			"MALFORMED": &graphql.EnumValueConfig{Value: storage.OutcomeMalformed},
			"EXPIRED":   &graphql.EnumValueConfig{Value: storage.OutcomeExpired},
			"REPLAYED":  &graphql.EnumValueConfig{Value: storage.OutcomeReplayed},
			"BLOCKED":   &graphql.EnumValueConfig{Value: storage.OutcomeBlocked},
			"ERROR":     &graphql.EnumValueConfig{Value: storage.OutcomeError},
		},
	})

	// User IDs exceed the 32-bit GraphQL Int, so they travel as strings
	attemptType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Attempt",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.String,
			},
			"outcome": &graphql.Field{
				Type: outcomeEnum,
			},
			"userId": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if attempt, ok := p.Source.(*storage.Attempt); ok && attempt.UserID != 0 {
						return strconv.FormatInt(attempt.UserID, 10), nil
					}
					return nil, nil
				},
			},
			"username": &graphql.Field{
				Type: graphql.String,
			},
			"authDate": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if attempt, ok := p.Source.(*storage.Attempt); ok && attempt.AuthDate != 0 {
						return unixTime(attempt.AuthDate), nil
					}
					return nil, nil
				},
			},
			"hash": &graphql.Field{
				Type: graphql.String,
			},
			"error": &graphql.Field{
				Type: graphql.String,
			},
			"remoteAddr": &graphql.Field{
				Type: graphql.String,
			},
			"createdAt": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if attempt, ok := p.Source.(*storage.Attempt); ok {
						return attempt.CreatedAt, nil
					}
					return nil, nil
				},
			},
		},
	})

	// Define AttemptsResponse type
	attemptsResponseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AttemptsResponse",
		Fields: graphql.Fields{
			"attempts": &graphql.Field{
				Type: graphql.NewList(attemptType),
			},
			"total": &graphql.Field{
				Type: graphql.Int,
			},
		},
	})

	// Define Stats type
	statType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stat",
		Fields: graphql.Fields{
			"outcome": &graphql.Field{
				Type: outcomeEnum,
			},
			"count": &graphql.Field{
				Type: graphql.Int,
			},
		},
	})

	// Define root query
	rootQuery := graphql.NewObject(graphql.ObjectConfig{
		Name: "RootQuery",
		Fields: graphql.Fields{
			"attempts": &graphql.Field{
				Type: attemptsResponseType,
				Args: graphql.FieldConfigArgument{
					"outcome": &graphql.ArgumentConfig{
						Type: graphql.NewList(outcomeEnum),
					},
					"userId": &graphql.ArgumentConfig{
						Type: graphql.String,
					},
					"since": &graphql.ArgumentConfig{
						Type: graphql.DateTime,
					},
					"until": &graphql.ArgumentConfig{
						Type: graphql.DateTime,
					},
					"limit": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
					"offset": &graphql.ArgumentConfig{
						Type: graphql.Int,
					},
				},
				Resolve: s.resolveAttempts,
			},
			"attempt": &graphql.Field{
				Type: attemptType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.String),
					},
				},
				Resolve: s.resolveAttempt,
			},
			"stats": &graphql.Field{
				Type: graphql.NewList(statType),
				Args: graphql.FieldConfigArgument{
					"since": &graphql.ArgumentConfig{
						Type: graphql.DateTime,
					},
				},
				Resolve: s.resolveStats,
			},
		},
	})

	// Create schema
	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: rootQuery,
	})
	if err != nil {
		return nil, err
	}

	s.schema = schema
	return s, nil
}
