package report

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/finsight"
)

// Query evaluates a JSONPath expression against the JSON form of a report,
// for instance "$.result.alerts[?(@.type=="CRITICAL")].message".
func Query(r finsight.SavedReport, path string) (any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(data, &jobj); err != nil {
		return nil, err
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", path, err)
	}
	return jval, nil
}
