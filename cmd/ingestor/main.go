// Function ingestor polls the IGP feed and refreshes the sismos table.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/igpdata/sismosync/internal/feed"
	"github.com/igpdata/sismosync/internal/ingestor"
	"github.com/igpdata/sismosync/internal/snapshot"
)

var sess *session.Session
var ddb *dynamodb.DynamoDB
var fc *feed.Client

func init() {
	sess = session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	ddb = dynamodb.New(sess, &aws.Config{Region: aws.String(os.Getenv("AWS_REGION"))})

	var err error
	fc, err = feed.NewClient(&http.Client{Timeout: feed.Timeout})
	if err != nil {
		log.Fatalf("could not create feed client: %v", err)
	}
}

func handler(req *events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return ingestor.NewHandler(fc, snapshot.NewStore(ddb)).Handle(req)
}

func main() {
	lambda.Start(handler)
}
