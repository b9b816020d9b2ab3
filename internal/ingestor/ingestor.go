// Package ingestor runs one fetch-normalize-store cycle per invocation.
package ingestor

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/tidwall/gjson"

	"github.com/igpdata/sismosync/internal/sismo"
)

// recordLimit caps how many events are pulled per run.
const recordLimit = 10

// Fetcher is an abstraction for the feed client
type Fetcher interface {
	FetchRecent(limit int) ([]gjson.Result, error)
}

// Replacer is an abstraction for the snapshot store
type Replacer interface {
	ReplaceAll([]sismo.Sismo) error
}

// Handler represents the handler type
type Handler struct {
	feed  Fetcher
	store Replacer
}

// NewHandler returns a new Handler
func NewHandler(f Fetcher, s Replacer) *Handler {
	return &Handler{feed: f, store: s}
}

// run executes the pipeline and returns the stored batch.
func (h *Handler) run() ([]sismo.Sismo, error) {

	features, err := h.feed.FetchRecent(recordLimit)
	if err != nil {
		return nil, err
	}

	sismos := make([]sismo.Sismo, 0, len(features))
	for _, f := range features {
		sismos = append(sismos, sismo.Normalize(f))
	}

	err = h.store.ReplaceAll(sismos)
	if err != nil {
		return nil, err
	}
	return sismos, nil
}

// Handle deals with one scheduled invocation. The request carries nothing
// the pipeline needs and may be nil. Failures come back as a 500 response,
// never as a Go error, so the scheduler sees every invocation complete.
func (h *Handler) Handle(request *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {

	sismos, err := h.run()
	if err != nil {
		return fail(err), nil
	}

	body, err := json.Marshal(sismos)
	if err != nil {
		return fail(fmt.Errorf("could not marshal response: %v", err)), nil
	}

	fmt.Printf("stored %v events\n", len(sismos))
	return respond(http.StatusOK, string(body)), nil
}

func fail(err error) events.APIGatewayProxyResponse {

	fmt.Println(err)
	eb, _ := json.Marshal(map[string]string{"error": err.Error()})
	return respond(http.StatusInternalServerError, string(eb))
}

func respond(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":                "application/json; charset=utf-8",
			"Access-Control-Allow-Origin": "*",
		},
	}
}
