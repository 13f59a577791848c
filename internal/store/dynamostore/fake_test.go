package dynamostore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeDynamo is an in-memory table that understands the expressions the
// store builds: attribute_(not_)exists conditions, SET updates and a single
// equality filter.
type fakeDynamo struct {
	mu          sync.Mutex
	items       map[string]map[string]types.AttributeValue
	pageSize    int
	tableExists bool
	created     *dynamodb.CreateTableInput
	scans       int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items:       make(map[string]map[string]types.AttributeValue),
		pageSize:    2,
		tableExists: true,
	}
}

func pkOf(item map[string]types.AttributeValue) string {
	return item[attrPK].(*types.AttributeValueMemberS).Value
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func checkCondition(cond *string, exists bool) error {
	c := aws.ToString(cond)
	switch {
	case strings.Contains(c, "attribute_not_exists") && exists:
		return conditionFailed()
	case strings.Contains(c, "attribute_exists") && !exists:
		return conditionFailed()
	}
	return nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := pkOf(in.Item)
	_, exists := f.items[pk]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}
	f.items[pk] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[pkOf(in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := pkOf(in.Key)
	item, exists := f.items[pk]
	if err := checkCondition(in.ConditionExpression, exists); err != nil {
		return nil, err
	}

	update := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	if !strings.HasPrefix(update, "SET ") {
		return nil, fmt.Errorf("fake: unsupported update %q", update)
	}
	for _, clause := range strings.Split(strings.TrimPrefix(update, "SET "), ",") {
		parts := strings.Split(strings.TrimSpace(clause), " = ")
		if len(parts) != 2 {
			return nil, fmt.Errorf("fake: unsupported clause %q", clause)
		}
		item[in.ExpressionAttributeNames[parts[0]]] = in.ExpressionAttributeValues[parts[1]]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, pkOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++

	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := pkOf(in.ExclusiveStartKey)
		start = sort.SearchStrings(keys, last) + 1
	}
	end := start + f.pageSize
	if end > len(keys) {
		end = len(keys)
	}

	var filterName string
	var filterValue string
	if filter := aws.ToString(in.FilterExpression); filter != "" {
		parts := strings.Split(filter, " = ")
		filterName = in.ExpressionAttributeNames[strings.TrimSpace(parts[0])]
		filterValue = in.ExpressionAttributeValues[strings.TrimSpace(parts[1])].(*types.AttributeValueMemberS).Value
	}

	out := &dynamodb.ScanOutput{}
	for _, k := range keys[start:end] {
		item := f.items[k]
		if filterName != "" {
			v, ok := item[filterName].(*types.AttributeValueMemberS)
			if !ok || v.Value != filterValue {
				continue
			}
		}
		out.Items = append(out.Items, copyItem(item))
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}

func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tableExists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableName: in.TableName}}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableExists = true
	f.created = in
	return &dynamodb.CreateTableOutput{}, nil
}
