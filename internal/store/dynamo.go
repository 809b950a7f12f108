package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client used by Dynamo.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Dynamo keeps each collection in its own DynamoDB table, keyed by the
// collection's id field.
type Dynamo struct {
	client DynamoAPI
	tables map[Collection]string
}

func NewDynamo(client DynamoAPI, tables map[Collection]string) *Dynamo {
	return &Dynamo{client: client, tables: tables}
}

func (d *Dynamo) table(coll Collection) (*string, error) {
	name, ok := d.tables[coll]
	if !ok || name == "" {
		return nil, fmt.Errorf("dynamo: no table configured for %q", coll)
	}
	return aws.String(name), nil
}

func keyOf(coll Collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		coll.IDField(): &types.AttributeValueMemberS{Value: id},
	}
}

func (d *Dynamo) Create(ctx context.Context, coll Collection, doc Document) (Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}
	stored, _, err := withID(coll, doc)
	if err != nil {
		return nil, err
	}
	item, err := toItem(stored)
	if err != nil {
		return nil, err
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: table, Item: item}); err != nil {
		return nil, fmt.Errorf("dynamo put %s: %w", coll, err)
	}
	return stored, nil
}

func (d *Dynamo) Get(ctx context.Context, coll Collection, id string) (Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      table,
		Key:            keyOf(coll, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get %s/%s: %w", coll, id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return fromItem(out.Item), nil
}

func (d *Dynamo) List(ctx context.Context, coll Collection) ([]Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}
	return d.scan(ctx, coll, &dynamodb.ScanInput{TableName: table})
}

func (d *Dynamo) FindByAttribute(ctx context.Context, coll Collection, attr string, value any) ([]Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}
	n, err := normalize(value)
	if err != nil {
		return nil, err
	}
	av, err := toAttributeValue(n)
	if err != nil {
		return nil, err
	}
	return d.scan(ctx, coll, &dynamodb.ScanInput{
		TableName:                 table,
		FilterExpression:          aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": av},
	})
}

func (d *Dynamo) scan(ctx context.Context, coll Collection, in *dynamodb.ScanInput) ([]Document, error) {
	var out []Document
	pages := dynamodb.NewScanPaginator(d.client, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo scan %s: %w", coll, err)
		}
		for _, item := range page.Items {
			out = append(out, fromItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID(coll) < out[j].ID(coll) })
	return out, nil
}

func (d *Dynamo) Update(ctx context.Context, coll Collection, id string, fields Document) (Document, error) {
	return d.update(ctx, coll, id, fields, nil)
}

func (d *Dynamo) UpdateIf(ctx context.Context, coll Collection, id string, fields Document, cond Condition) (Document, error) {
	return d.update(ctx, coll, id, fields, &cond)
}

func (d *Dynamo) update(ctx context.Context, coll Collection, id string, fields Document, cond *Condition) (Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}

	names := map[string]string{"#pk": coll.IDField()}
	values := map[string]types.AttributeValue{}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != coll.IDField() {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return d.Get(ctx, coll, id)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	for i, k := range keys {
		n, err := normalize(fields[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		av, err := toAttributeValue(n)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		name, val := fmt.Sprintf("#f%d", i), fmt.Sprintf(":f%d", i)
		names[name] = k
		values[val] = av
		sets = append(sets, name+" = "+val)
	}

	condition := "attribute_exists(#pk)"
	if cond != nil {
		n, err := normalize(cond.Equals)
		if err != nil {
			return nil, err
		}
		av, err := toAttributeValue(n)
		if err != nil {
			return nil, err
		}
		names["#c"] = cond.Attr
		values[":c"] = av
		condition += " AND #c = :c"
	}

	out, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           table,
		Key:                                 keyOf(coll, id),
		UpdateExpression:                    aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return nil, ErrNotFound
			}
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("dynamo update %s/%s: %w", coll, id, err)
	}
	return fromItem(out.Attributes), nil
}

func (d *Dynamo) Delete(ctx context.Context, coll Collection, id string) (Document, error) {
	table, err := d.table(coll)
	if err != nil {
		return nil, err
	}
	out, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    table,
		Key:          keyOf(coll, id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo delete %s/%s: %w", coll, id, err)
	}
	if len(out.Attributes) == 0 {
		return nil, ErrNotFound
	}
	return fromItem(out.Attributes), nil
}

func toItem(doc Document) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(doc))
	for k, v := range doc {
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func fromItem(item map[string]types.AttributeValue) Document {
	doc := make(Document, len(item))
	for k, av := range item {
		doc[k] = fromAttributeValue(av)
	}
	return doc
}

// toAttributeValue converts a normalized document value.
func toAttributeValue(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: t}, nil
	case []any:
		list := make([]types.AttributeValue, 0, len(t))
		for _, e := range t {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case Document:
		return toAttributeValue(map[string]any(t))
	case map[string]any:
		m := make(map[string]types.AttributeValue, len(t))
		for k, e := range t {
			av, err := toAttributeValue(e)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		// normalize only yields the JSON shapes handled above.
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported value type %T: %w", v, err)
		}
		return toAttributeValue(n)
	}
}

func fromAttributeValue(av types.AttributeValue) any {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return t.Value
	case *types.AttributeValueMemberN:
		return json.Number(t.Value)
	case *types.AttributeValueMemberBOOL:
		return t.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberB:
		return t.Value
	case *types.AttributeValueMemberL:
		out := make([]any, 0, len(t.Value))
		for _, e := range t.Value {
			out = append(out, fromAttributeValue(e))
		}
		return out
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(t.Value))
		for k, e := range t.Value {
			out[k] = fromAttributeValue(e)
		}
		return out
	case *types.AttributeValueMemberSS:
		out := make([]any, 0, len(t.Value))
		for _, s := range t.Value {
			out = append(out, s)
		}
		return out
	case *types.AttributeValueMemberNS:
		out := make([]any, 0, len(t.Value))
		for _, s := range t.Value {
			out = append(out, json.Number(s))
		}
		return out
	case *types.AttributeValueMemberBS:
		out := make([]any, 0, len(t.Value))
		for _, b := range t.Value {
			out = append(out, b)
		}
		return out
	default:
		return nil
	}
}
