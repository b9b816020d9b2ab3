// Function runlocal runs one ingest cycle from a terminal instead of Lambda,
// useful for smoke-testing credentials and the feed before deploying.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/igpdata/sismosync/internal/feed"
	"github.com/igpdata/sismosync/internal/ingestor"
	"github.com/igpdata/sismosync/internal/snapshot"
)

func main() {

	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	ddb := dynamodb.New(sess, &aws.Config{Region: aws.String(os.Getenv("AWS_REGION"))})

	fc, err := feed.NewClient(&http.Client{Timeout: feed.Timeout})
	if err != nil {
		log.Fatalf("could not create feed client: %v", err)
	}

	resp, err := ingestor.NewHandler(fc, snapshot.NewStore(ddb)).Handle(nil)
	if err != nil {
		log.Fatalf("invocation failed: %v", err)
	}

	fmt.Printf("status: %v\n%v\n", resp.StatusCode, resp.Body)
}
