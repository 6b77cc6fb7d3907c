// Package dynamofake is an in-memory DynamoDB stand-in for unit tests. It
// implements the subset of behavior the stores rely on: keyed items per
// table, condition expressions, SET update expressions with arithmetic, and
// multi-item transactions with cancellation reasons.
package dynamofake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/atelier-commerce/orderflow/internal/platform"
)

var _ platform.DynamoDBAPI = (*Fake)(nil)

// Fake holds items per table. Construct with New, naming each table's
// partition key attribute.
type Fake struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue

	// PreTransact, when set, runs before a TransactWriteItems is evaluated.
	// Returning a non-nil error aborts the call with that error; tests use
	// this to inject races that condition evaluation alone cannot produce.
	PreTransact func(*dynamodb.TransactWriteItemsInput) error

	// PreUpdate is the UpdateItem equivalent of PreTransact.
	PreUpdate func(*dynamodb.UpdateItemInput) error
}

// New returns a Fake. keys maps table name -> partition key attribute.
func New(keys map[string]string) *Fake {
	tables := make(map[string]map[string]map[string]types.AttributeValue, len(keys))
	for table := range keys {
		tables[table] = map[string]map[string]types.AttributeValue{}
	}
	return &Fake{keys: keys, tables: tables}
}

// Seed marshals v and stores it. Panics on marshal failure; test setup only.
func (f *Fake) Seed(table string, v interface{}) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		panic(fmt.Sprintf("dynamofake seed %s: %v", table, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[table][f.pk(table, item)] = item
}

// Load unmarshals the item under key into out. Returns false when absent.
func (f *Fake) Load(table, key string, out interface{}) bool {
	f.mu.Lock()
	item, ok := f.tables[table][key]
	f.mu.Unlock()
	if !ok {
		return false
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		panic(fmt.Sprintf("dynamofake load %s/%s: %v", table, key, err))
	}
	return true
}

// Len returns the number of items in a table.
func (f *Fake) Len(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *Fake) pk(table string, item map[string]types.AttributeValue) string {
	attr, ok := f.keys[table]
	if !ok {
		panic("dynamofake: unknown table " + table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		panic("dynamofake: missing key attribute " + attr + " in " + table)
	}
	return v.Value
}

func (f *Fake) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.tables[*params.TableName][f.pk(*params.TableName, params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := *params.TableName
	key := f.pk(table, params.Item)
	existing := f.tables[table][key]
	if params.ConditionExpression != nil {
		if !evalCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	f.tables[table][key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PreUpdate != nil {
		if err := f.PreUpdate(params); err != nil {
			return nil, err
		}
	}
	table := *params.TableName
	key := f.pk(table, params.Key)
	item, exists := f.tables[table][key]
	if !exists {
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
	}
	if params.ConditionExpression != nil {
		var existing map[string]types.AttributeValue
		if exists {
			existing = item
		}
		if !evalCondition(*params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing) {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if params.UpdateExpression != nil {
		if err := applySet(*params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item); err != nil {
			return nil, err
		}
	}
	f.tables[table][key] = item
	return &dynamodb.UpdateItemOutput{Attributes: item}, nil
}

func (f *Fake) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// indexes are emulated as full scans matching the key condition
	var items []map[string]types.AttributeValue
	for _, item := range f.tables[*params.TableName] {
		if evalCondition(*params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item) {
			items = append(items, item)
		}
	}
	if params.Limit != nil && int32(len(items)) > *params.Limit {
		items = items[:*params.Limit]
	}
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *Fake) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]types.AttributeValue
	for _, item := range f.tables[*params.TableName] {
		if params.FilterExpression != nil &&
			!evalCondition(*params.FilterExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, item) {
			continue
		}
		items = append(items, item)
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (f *Fake) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.BatchGetItemOutput{
		Responses: map[string][]map[string]types.AttributeValue{},
	}
	for table, ka := range params.RequestItems {
		for _, key := range ka.Keys {
			if item, ok := f.tables[table][f.pk(table, key)]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func (f *Fake) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PreTransact != nil {
		if err := f.PreTransact(params); err != nil {
			return nil, err
		}
	}

	// first pass: evaluate every condition, building cancellation reasons
	failed := false
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	for i, it := range params.TransactItems {
		reasons[i] = types.CancellationReason{Code: strPtr("None")}
		switch {
		case it.Put != nil:
			existing := f.tables[*it.Put.TableName][f.pk(*it.Put.TableName, it.Put.Item)]
			if it.Put.ConditionExpression != nil &&
				!evalCondition(*it.Put.ConditionExpression, it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues, existing) {
				reasons[i].Code = strPtr("ConditionalCheckFailed")
				failed = true
			}
		case it.Update != nil:
			existing := f.tables[*it.Update.TableName][f.pk(*it.Update.TableName, it.Update.Key)]
			if it.Update.ConditionExpression != nil &&
				!evalCondition(*it.Update.ConditionExpression, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues, existing) {
				reasons[i].Code = strPtr("ConditionalCheckFailed")
				failed = true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	// second pass: apply everything
	for _, it := range params.TransactItems {
		switch {
		case it.Put != nil:
			table := *it.Put.TableName
			f.tables[table][f.pk(table, it.Put.Item)] = it.Put.Item
		case it.Update != nil:
			table := *it.Update.TableName
			key := f.pk(table, it.Update.Key)
			item, ok := f.tables[table][key]
			if !ok {
				item = map[string]types.AttributeValue{}
				for k, v := range it.Update.Key {
					item[k] = v
				}
			}
			if it.Update.UpdateExpression != nil {
				if err := applySet(*it.Update.UpdateExpression, it.Update.ExpressionAttributeNames, it.Update.ExpressionAttributeValues, item); err != nil {
					return nil, err
				}
			}
			f.tables[table][key] = item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// --- expression evaluation ---

// evalCondition handles the expression shapes the stores emit: AND/OR chains
// of attribute_exists, attribute_not_exists, and comparisons against bound
// values. The stores never mix AND and OR in one expression.
func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	for _, orPart := range strings.Split(expr, " OR ") {
		ok := true
		for _, andPart := range strings.Split(orPart, " AND ") {
			if !evalAtom(strings.TrimSpace(andPart), names, values, item) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func evalAtom(atom string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) bool {
	if path, ok := fnArg(atom, "attribute_not_exists"); ok {
		_, exists := resolvePath(path, names, item)
		return !exists
	}
	if path, ok := fnArg(atom, "attribute_exists"); ok {
		_, exists := resolvePath(path, names, item)
		return exists
	}
	for _, op := range []string{">=", "<>", "="} {
		idx := strings.Index(atom, " "+op+" ")
		if idx < 0 {
			continue
		}
		left, exists := resolvePath(strings.TrimSpace(atom[:idx]), names, item)
		if !exists {
			return false
		}
		right, ok := values[strings.TrimSpace(atom[idx+len(op)+2:])]
		if !ok {
			return false
		}
		return compare(op, left, right)
	}
	return false
}

func compare(op string, left, right types.AttributeValue) bool {
	if ln, ok := left.(*types.AttributeValueMemberN); ok {
		rn, ok := right.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		l, r := mustInt(ln.Value), mustInt(rn.Value)
		switch op {
		case ">=":
			return l >= r
		case "<>":
			return l != r
		default:
			return l == r
		}
	}
	ls := attrString(left)
	rs := attrString(right)
	switch op {
	case "<>":
		return ls != rs
	case "=":
		return ls == rs
	}
	return false
}

func attrString(v types.AttributeValue) string {
	switch t := v.(type) {
	case *types.AttributeValueMemberS:
		return t.Value
	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(t.Value)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// applySet interprets "SET a = b, c = d" update expressions, including
// if_not_exists and single +/- arithmetic on numeric attributes.
func applySet(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	if !strings.HasPrefix(expr, "SET ") {
		return errors.New("dynamofake: unsupported update expression: " + expr)
	}
	for _, assignment := range splitAssignments(strings.TrimPrefix(expr, "SET ")) {
		eq := strings.Index(assignment, " = ")
		if eq < 0 {
			return errors.New("dynamofake: malformed assignment: " + assignment)
		}
		lhs := strings.TrimSpace(assignment[:eq])
		val, err := evalRHS(strings.TrimSpace(assignment[eq+3:]), names, values, item)
		if err != nil {
			return err
		}
		setPath(lhs, names, item, val)
	}
	return nil
}

// splitAssignments splits "a = b, c = d" on commas outside parentheses so
// if_not_exists arguments are not split.
func splitAssignments(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(parts, strings.TrimSpace(s[start:]))
}

func evalRHS(rhs string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (types.AttributeValue, error) {
	// arithmetic: exactly one "term + term" or "term - term"; scan outside
	// parentheses so if_not_exists arguments are not split
	depth := 0
	for i := 0; i < len(rhs); i++ {
		switch rhs[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '+', '-':
			if depth == 0 && i > 0 && rhs[i-1] == ' ' {
				left, err := evalTerm(strings.TrimSpace(rhs[:i-1]), names, values, item)
				if err != nil {
					return nil, err
				}
				right, err := evalTerm(strings.TrimSpace(rhs[i+1:]), names, values, item)
				if err != nil {
					return nil, err
				}
				l, r := termInt(left), termInt(right)
				if rhs[i] == '-' {
					return &types.AttributeValueMemberN{Value: strconv.FormatInt(l-r, 10)}, nil
				}
				return &types.AttributeValueMemberN{Value: strconv.FormatInt(l+r, 10)}, nil
			}
		}
	}
	return evalTerm(rhs, names, values, item)
}

func evalTerm(term string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (types.AttributeValue, error) {
	if strings.HasPrefix(term, ":") {
		v, ok := values[term]
		if !ok {
			return nil, errors.New("dynamofake: unbound value " + term)
		}
		return v, nil
	}
	if inner, ok := fnArg(term, "if_not_exists"); ok {
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return nil, errors.New("dynamofake: malformed if_not_exists: " + term)
		}
		if v, exists := resolvePath(strings.TrimSpace(parts[0]), names, item); exists {
			return v, nil
		}
		return evalTerm(strings.TrimSpace(parts[1]), names, values, item)
	}
	if v, exists := resolvePath(term, names, item); exists {
		return v, nil
	}
	return &types.AttributeValueMemberN{Value: "0"}, nil
}

func termInt(v types.AttributeValue) int64 {
	if n, ok := v.(*types.AttributeValueMemberN); ok {
		return mustInt(n.Value)
	}
	return 0
}

// resolvePath walks a dot-separated document path through nested maps,
// substituting #name placeholders.
func resolvePath(path string, names map[string]string, item map[string]types.AttributeValue) (types.AttributeValue, bool) {
	if item == nil {
		return nil, false
	}
	segments := strings.Split(path, ".")
	var current types.AttributeValue
	container := item
	for i, seg := range segments {
		seg = subName(seg, names)
		v, ok := container[seg]
		if !ok {
			return nil, false
		}
		current = v
		if i < len(segments)-1 {
			m, ok := v.(*types.AttributeValueMemberM)
			if !ok {
				return nil, false
			}
			container = m.Value
		}
	}
	return current, true
}

func setPath(path string, names map[string]string, item map[string]types.AttributeValue, val types.AttributeValue) {
	segments := strings.Split(path, ".")
	container := item
	for i, seg := range segments {
		seg = subName(seg, names)
		if i == len(segments)-1 {
			container[seg] = val
			return
		}
		m, ok := container[seg].(*types.AttributeValueMemberM)
		if !ok {
			m = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			container[seg] = m
		}
		container = m.Value
	}
}

func subName(seg string, names map[string]string) string {
	if strings.HasPrefix(seg, "#") {
		if real, ok := names[seg]; ok {
			return real
		}
	}
	return seg
}

func fnArg(s, fn string) (string, bool) {
	if strings.HasPrefix(s, fn+"(") && strings.HasSuffix(s, ")") {
		return s[len(fn)+1 : len(s)-1], true
	}
	return "", false
}

func mustInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func strPtr(s string) *string { return &s }
