package gatemetrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadMappingProfile loads a mapping profile document from a YAML or JSON file
func LoadMappingProfile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping profile %s: %w", path, err)
	}

	var payload map[string]any
	if strings.ToLower(strings.TrimSpace(filepath.Ext(path))) == ".json" {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("mapping profile document must be an object: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("mapping profile document must be an object: %w", err)
		}
	}
	if payload == nil {
		return map[string]any{}, nil
	}
	return payload, nil
}

// SelectMappingProfile picks one profile out of a profile document. Documents
// without a 'profiles' section are treated as a single anonymous profile.
func SelectMappingProfile(document map[string]any, profileName string) (string, map[string]any, error) {
	rawProfiles, hasProfiles := document["profiles"]
	if hasProfiles {
		profiles, ok := rawProfiles.(map[string]any)
		if !ok {
			if profileName != "" {
				return "", nil, fmt.Errorf("profile_name was provided but mapping file has no 'profiles' section")
			}
			return "default", document, nil
		}
		if len(profiles) == 0 {
			return "", nil, fmt.Errorf("mapping profile 'profiles' is empty")
		}
		if profileName == "" {
			if len(profiles) != 1 {
				names := make([]string, 0, len(profiles))
				for name := range profiles {
					names = append(names, name)
				}
				sort.Strings(names)
				return "", nil, fmt.Errorf(
					"profile document contains multiple profiles; specify --profile-name one of: %s",
					strings.Join(names, ", "))
			}
			for name := range profiles {
				profileName = name
			}
		}
		profilePayload, ok := profiles[profileName].(map[string]any)
		if !ok {
			return "", nil, fmt.Errorf("profile '%s' is not present in mapping document", profileName)
		}
		return profileName, profilePayload, nil
	}

	if profileName != "" {
		return "", nil, fmt.Errorf("profile_name was provided but mapping file has no 'profiles' section")
	}
	return "default", document, nil
}

func parseColumnMap(payload any) (map[string]string, error) {
	if payload == nil {
		return map[string]string{}, nil
	}
	object, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("column_map must be an object")
	}

	result := make(map[string]string, len(object))
	seen := make(map[string]struct{}, len(object))
	for sourceKey, rawTarget := range object {
		targetKey, ok := rawTarget.(string)
		if !ok {
			return nil, fmt.Errorf("column_map keys and values must be strings")
		}
		source := strings.TrimSpace(sourceKey)
		target := strings.TrimSpace(targetKey)
		if source == "" || target == "" {
			return nil, fmt.Errorf("column_map entries must have non-empty source and target")
		}
		sourceNormalized := strings.ToLower(source)
		if _, duplicate := seen[sourceNormalized]; duplicate {
			return nil, fmt.Errorf("column_map contains duplicate source column '%s'", source)
		}
		seen[sourceNormalized] = struct{}{}
		result[source] = target
	}
	return result, nil
}

func parseValueMap(payload any) (map[string]map[string]any, error) {
	if payload == nil {
		return map[string]map[string]any{}, nil
	}
	object, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value_map must be an object")
	}

	parsed := make(map[string]map[string]any, len(object))
	for fieldName, rawMapping := range object {
		mappingPayload, ok := rawMapping.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("value_map entry for '%s' must be an object", fieldName)
		}
		mapping := make(map[string]any, len(mappingPayload))
		for rawValue, mappedValue := range mappingPayload {
			mapping[strings.TrimSpace(rawValue)] = mappedValue
		}
		parsed[strings.TrimSpace(fieldName)] = mapping
	}
	return parsed, nil
}

func mergeValueMaps(base, update map[string]map[string]any) map[string]map[string]any {
	merged := make(map[string]map[string]any, len(base))
	for key, value := range base {
		copied := make(map[string]any, len(value))
		for k, v := range value {
			copied[k] = v
		}
		merged[key] = copied
	}
	for fieldName, fieldMap := range update {
		current, present := merged[fieldName]
		if !present {
			current = make(map[string]any, len(fieldMap))
			merged[fieldName] = current
		}
		for k, v := range fieldMap {
			current[k] = v
		}
	}
	return merged
}

// buildProfileMappings flattens the profile root, its 'common' section and the
// requested section ("clinical" or "bench") into one column map and one value
// map. Later sections win; ambiguous duplicate targets are an error.
func buildProfileMappings(profile map[string]any, section string) (map[string]string, map[string]map[string]any, error) {
	if len(profile) == 0 {
		return map[string]string{}, map[string]map[string]any{}, nil
	}

	sections := []map[string]any{profile}
	if rawCommon, present := profile["common"]; present && rawCommon != nil {
		common, ok := rawCommon.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("profile.common must be an object")
		}
		sections = append(sections, common)
	}
	if rawSection, present := profile[section]; present && rawSection != nil {
		sectionPayload, ok := rawSection.(map[string]any)
		if !ok {
			return nil, nil, fmt.Errorf("profile.%s must be an object", section)
		}
		sections = append(sections, sectionPayload)
	}

	columnMap := make(map[string]string)
	valueMap := make(map[string]map[string]any)
	for _, item := range sections {
		parsedColumns, err := parseColumnMap(item["column_map"])
		if err != nil {
			return nil, nil, err
		}
		for source, target := range parsedColumns {
			columnMap[source] = target
		}
		parsedValues, err := parseValueMap(item["value_map"])
		if err != nil {
			return nil, nil, err
		}
		valueMap = mergeValueMaps(valueMap, parsedValues)
	}

	targetToSources := make(map[string][]string)
	for source, target := range columnMap {
		key := strings.ToLower(target)
		targetToSources[key] = append(targetToSources[key], source)
	}
	var duplicates []string
	for target, sources := range targetToSources {
		if len(sources) > 1 {
			sort.Strings(sources)
			duplicates = append(duplicates, fmt.Sprintf("%s <- %s", target, strings.Join(sources, ", ")))
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return nil, nil, fmt.Errorf("column_map has ambiguous duplicate targets: %s", strings.Join(duplicates, "; "))
	}
	return columnMap, valueMap, nil
}

// applyProfileToRows copies mapped source columns onto missing or empty target
// columns, then rewrites cell values through the value map
func applyProfileToRows(rows []Row, profile map[string]any, section string) ([]Row, error) {
	columnMap, valueMap, err := buildProfileMappings(profile, section)
	if err != nil {
		return nil, err
	}
	if len(columnMap) == 0 && len(valueMap) == 0 {
		return rows, nil
	}

	normalizedColumnMap := make(map[string]string, len(columnMap))
	for source, target := range columnMap {
		normalizedColumnMap[strings.ToLower(source)] = target
	}

	remapped := make([]Row, 0, len(rows))
	for _, row := range rows {
		mappedRow := make(Row, len(row))
		for key, value := range row {
			mappedRow[key] = value
		}
		rowLookup := keyLookup(mappedRow)

		for sourceLower, targetKey := range normalizedColumnMap {
			sourceKey, present := rowLookup[sourceLower]
			if !present {
				continue
			}
			sourceValue := mappedRow[sourceKey]
			targetValue, targetExists := mappedRow[targetKey]
			targetIsEmpty := targetValue == nil || targetValue == ""
			if !targetExists || targetIsEmpty {
				mappedRow[targetKey] = sourceValue
			}
		}

		mappedLookup := keyLookup(mappedRow)
		for fieldName, fieldMap := range valueMap {
			fieldKey, present := mappedLookup[strings.ToLower(fieldName)]
			if !present {
				continue
			}
			rawValue := mappedRow[fieldKey]
			rawText := ""
			if rawValue != nil {
				rawText = strings.TrimSpace(fmt.Sprintf("%v", rawValue))
			}
			mappedValue, found := fieldMap[rawText]
			if !found && rawText != "" {
				mappedValue, found = fieldMap[strings.ToLower(rawText)]
			}
			if found && mappedValue != nil {
				mappedRow[fieldKey] = mappedValue
			}
		}

		remapped = append(remapped, mappedRow)
	}
	return remapped, nil
}
