package events

import (
	"encoding/json"
	"fmt"
)

// SetMergeData sets the Data field with MergeData in a type-safe way.
func (e *DecisionEvent) SetMergeData(data MergeData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert MergeData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetMergeData retrieves MergeData from the Data field.
func (e *DecisionEvent) GetMergeData() (*MergeData, error) {
	var data MergeData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse MergeData: %w", err)
	}
	return &data, nil
}

// SetOrphanData sets the Data field with OrphanData in a type-safe way.
func (e *DecisionEvent) SetOrphanData(data OrphanData) error {
	dataMap, err := structToMap(data)
	if err != nil {
		return fmt.Errorf("failed to convert OrphanData: %w", err)
	}
	e.Data = dataMap
	return nil
}

// GetOrphanData retrieves OrphanData from the Data field.
func (e *DecisionEvent) GetOrphanData() (*OrphanData, error) {
	var data OrphanData
	if err := mapToStruct(e.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse OrphanData: %w", err)
	}
	return &data, nil
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(data interface{}) (map[string]interface{}, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(bytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// mapToStruct converts a map[string]interface{} to a struct using JSON unmarshaling.
func mapToStruct(dataMap map[string]interface{}, target interface{}) error {
	bytes, err := json.Marshal(dataMap)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}
