package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	defaultSampleLengthConstant    = 500
	byteOrderMarkConstant          = "\uFEFF"
	emptyOutputMessageConstant     = "function produced no output to decode"
	malformedOutputMessageConstant = "function output is not valid JSON"
	trailingOutputMessageConstant  = "function output contains data after the JSON document"
)

// ResultDecoder turns raw standard output into a structured result.
type ResultDecoder struct {
	sampleLength int
}

// NewResultDecoder constructs a decoder whose failure samples hold at most sampleLength characters.
func NewResultDecoder(sampleLength int) ResultDecoder {
	if sampleLength <= 0 {
		sampleLength = defaultSampleLengthConstant
	}
	return ResultDecoder{sampleLength: sampleLength}
}

// Decode parses rawOutput as a single JSON document. Numbers are kept as json.Number to avoid precision loss.
func (decoder ResultDecoder) Decode(rawOutput string) (any, error) {
	trimmedOutput := strings.TrimSpace(strings.TrimPrefix(rawOutput, byteOrderMarkConstant))
	if len(trimmedOutput) == 0 {
		return nil, newDecodeFailure(emptyOutputMessageConstant, decoder.Sample(rawOutput), nil)
	}

	jsonDecoder := json.NewDecoder(strings.NewReader(trimmedOutput))
	jsonDecoder.UseNumber()

	var decodedResult any
	if decodeError := jsonDecoder.Decode(&decodedResult); decodeError != nil {
		return nil, newDecodeFailure(malformedOutputMessageConstant, decoder.Sample(rawOutput), decodeError)
	}

	var trailingValue json.RawMessage
	trailingError := jsonDecoder.Decode(&trailingValue)
	if !errors.Is(trailingError, io.EOF) {
		return nil, newDecodeFailure(trailingOutputMessageConstant, decoder.Sample(rawOutput), trailingError)
	}

	return decodedResult, nil
}

// Sample returns at most the first sampleLength characters of rawOutput.
func (decoder ResultDecoder) Sample(rawOutput string) string {
	if utf8.RuneCountInString(rawOutput) <= decoder.sampleLength {
		return rawOutput
	}
	var sampleBuilder bytes.Buffer
	runeCount := 0
	for _, character := range rawOutput {
		if runeCount == decoder.sampleLength {
			break
		}
		sampleBuilder.WriteRune(character)
		runeCount++
	}
	return sampleBuilder.String()
}
