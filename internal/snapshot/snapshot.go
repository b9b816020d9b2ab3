// Package snapshot replaces the full contents of the sismos table.
package snapshot

import (
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"

	"github.com/igpdata/sismosync/internal/sismo"
)

// DBAPI is an abstraction (helpful for testing)
type DBAPI interface {
	Scan(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	BatchWriteItem(*dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)
}

// batchMax is the DynamoDB cap on requests per BatchWriteItem call.
const batchMax = 25

// maxAttempts bounds resubmission of unprocessed batch items.
const maxAttempts = 3

// Store holds the current snapshot of reported events
type Store struct {
	ddb   DBAPI
	table string
}

// NewStore returns a Store writing to DYNAMO_TABLE_NAME, or IGP_Sismos if unset.
func NewStore(d DBAPI) *Store {

	table, ok := os.LookupEnv("DYNAMO_TABLE_NAME")
	if !ok {
		table = "IGP_Sismos"
	}
	return &Store{ddb: d, table: table}
}

// ReplaceAll drops every row currently in the table and writes the new
// batch. Deletes and inserts are separate batches, not a transaction: a
// failure part way through can leave the table partially updated.
func (s *Store) ReplaceAll(sismos []sismo.Sismo) error {

	ids, err := s.scanIDs()
	if err != nil {
		return err
	}

	fmt.Printf("replacing %v rows with %v new\n", len(ids), len(sismos))

	err = s.deleteAll(ids)
	if err != nil {
		return err
	}
	return s.putAll(sismos)
}

// scanIDs returns the key of every row currently in the table.
func (s *Store) scanIDs() ([]string, error) {

	input := &dynamodb.ScanInput{
		TableName:                aws.String(s.table),
		ProjectionExpression:     aws.String("#id"),
		ExpressionAttributeNames: map[string]*string{"#id": aws.String("id")},
	}

	var ids []string
	for {
		out, err := s.ddb.Scan(input)
		if err != nil {
			return nil, fmt.Errorf("could not scan table: %v", err)
		}

		for _, item := range out.Items {
			if av, ok := item["id"]; ok && av.S != nil {
				ids = append(ids, *av.S)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *Store) deleteAll(ids []string) error {

	reqs := make([]*dynamodb.WriteRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, &dynamodb.WriteRequest{
			DeleteRequest: &dynamodb.DeleteRequest{
				Key: map[string]*dynamodb.AttributeValue{
					"id": {S: aws.String(id)},
				},
			},
		})
	}
	return s.write(reqs, "delete")
}

func (s *Store) putAll(sismos []sismo.Sismo) error {

	reqs := make([]*dynamodb.WriteRequest, 0, len(sismos))
	for _, sm := range sismos {
		item, err := dynamodbattribute.MarshalMap(sm)
		if err != nil {
			return fmt.Errorf("could not marshal db record: %v", err)
		}
		reqs = append(reqs, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}
	return s.write(reqs, "insert")
}

// write submits requests in chunks of batchMax, resubmitting any items the
// service reports back as unprocessed.
func (s *Store) write(reqs []*dynamodb.WriteRequest, phase string) error {

	for start := 0; start < len(reqs); start += batchMax {
		end := start + batchMax
		if end > len(reqs) {
			end = len(reqs)
		}

		pending := reqs[start:end]
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxAttempts {
				return fmt.Errorf("could not %v batch: %v items unprocessed after %v attempts", phase, len(pending), attempt)
			}

			out, err := s.ddb.BatchWriteItem(&dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]*dynamodb.WriteRequest{s.table: pending},
			})
			if err != nil {
				return fmt.Errorf("could not %v batch: %v", phase, err)
			}
			pending = out.UnprocessedItems[s.table]
		}
	}
	return nil
}
