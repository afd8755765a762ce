// Command example-http hosts a chi REST API behind an API Gateway HTTP API
// event handler, with a DynamoDB-backed note store resolved through the
// service container.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"lambdahost/hosting"
	"lambdahost/infrastructure/config"
	"lambdahost/infrastructure/di"
	"lambdahost/invocation"
	"lambdahost/lifecycle"
	"lambdahost/middleware"
	"lambdahost/pipeline"
)

const defaultTableName = "notes"

type note struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Content   string    `json:"content" dynamodbav:"content" validate:"required,max=4096"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

var errNoteNotFound = errors.New("note not found")

// noteStore persists notes in a DynamoDB table keyed by id.
type noteStore struct {
	client *dynamodb.Client
	table  string
}

func newNoteStore(client *dynamodb.Client, table string) *noteStore {
	return &noteStore{client: client, table: table}
}

func (s *noteStore) Get(ctx context.Context, id string) (*note, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, errNoteNotFound
	}

	var n note
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *noteStore) Put(ctx context.Context, n *note) error {
	n.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	return err
}

// newRouter builds the REST surface served behind the API Gateway proxy.
func newRouter(store *noteStore, validate *validator.Validate, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/notes/{id}", func(w http.ResponseWriter, req *http.Request) {
		n, err := store.Get(req.Context(), chi.URLParam(req, "id"))
		if errors.Is(err, errNoteNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("failed to load note", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(n)
	})

	r.Put("/notes/{id}", func(w http.ResponseWriter, req *http.Request) {
		var n note
		if err := json.NewDecoder(req.Body).Decode(&n); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		n.ID = chi.URLParam(req, "id")
		if err := validate.Struct(&n); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Put(req.Context(), &n); err != nil {
			logger.Error("failed to save note", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(n)
	})

	return r
}

func main() {
	opts, err := config.LoadOptions()
	if err != nil {
		log.Fatalf("failed to load options: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	handler := pipeline.Typed(func(c *invocation.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		adapter, err := di.Resolve[*chiadapter.ChiLambdaV2](c.Scope())
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return adapter.ProxyWithContextV2(c.Context(), req)
	})

	svc, err := hosting.New(opts).
		WithLogger(logger).
		ConfigureServices(func(c *di.Container) {
			di.Register[*dynamodb.Client](c, di.Singleton, func(r di.Resolver) (*dynamodb.Client, error) {
				cfg, err := awsconfig.LoadDefaultConfig(context.Background())
				if err != nil {
					return nil, err
				}
				return dynamodb.NewFromConfig(cfg), nil
			})
			di.Register[*noteStore](c, di.Singleton, func(r di.Resolver) (*noteStore, error) {
				client, err := di.Resolve[*dynamodb.Client](r)
				if err != nil {
					return nil, err
				}
				return newNoteStore(client, defaultTableName), nil
			})
			di.Register[*chiadapter.ChiLambdaV2](c, di.Singleton, func(r di.Resolver) (*chiadapter.ChiLambdaV2, error) {
				store, err := di.Resolve[*noteStore](r)
				if err != nil {
					return nil, err
				}
				return chiadapter.NewV2(newRouter(store, validator.New(), logger)), nil
			})
		}).
		OnInit(func(c *lifecycle.Context) (bool, error) {
			// Build the router and its AWS clients during the init phase so
			// the first invocation does not pay the construction cost.
			_, err := di.Resolve[*chiadapter.ChiLambdaV2](c.Scope())
			return err == nil, err
		}).
		Use(middleware.RequestID()).
		Use(middleware.Logging(logger)).
		Handle(handler).
		Build()
	if err != nil {
		log.Fatalf("failed to build host: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(context.Background()); err != nil {
		logger.Fatal("host exited with error", zap.Error(err))
	}
}
