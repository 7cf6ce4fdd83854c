package formatters

import (
	"encoding/json"
	"fmt"
	"sort"

	"skillgap/internal/types"
)

// Data type keys used by the registry
const (
	typeAny          = "any"
	typeAnalysis     = "FullAnalysisResponse"
	typeQuantitative = "QuantitativeReport"
	typeExtract      = "ExtractResponse"
	typeDemand       = "DemandRecords"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters used by the CLI
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", &JSONFormatter{})
	for _, style := range []style{textStyle, markdownStyle} {
		registry.RegisterFormatter(style.name, &AnalysisFormatter{style: style})
		registry.RegisterFormatter(style.name, &QuantitativeFormatter{style: style})
		registry.RegisterFormatter(style.name, &ExtractFormatter{style: style})
		registry.RegisterFormatter(style.name, &DemandFormatter{style: style})
	}

	return registry
}

// RegisterFormatter registers a formatter under its supported data type
func (fr *FormatterRegistry) RegisterFormatter(format string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][formatter.SupportedType()] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[typeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.FullAnalysisResponse, types.FullAnalysisResponse:
		return typeAnalysis
	case types.QuantitativeReport, *types.QuantitativeReport:
		return typeQuantitative
	case types.ExtractResponse, *types.ExtractResponse:
		return typeExtract
	case []types.DemandRecord:
		return typeDemand
	default:
		return typeAny
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return typeAny
}
