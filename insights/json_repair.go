// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package insights

import "strings"

// repairJSON fixes formatting slips common in model output before the strict
// parse sees it. It isolates the outermost array, drops trailing commas and
// restores missing opening quotes on object keys. Well-formed input passes
// through unchanged.
func repairJSON(s string) string {
	s = isolateArray(s)
	s = dropTrailingCommas(s)
	return quoteBareKeys(s)
}

// isolateArray trims any prose around the first '[' and the last ']'.
func isolateArray(s string) string {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// dropTrailingCommas removes commas that directly precede a closing bracket
// or brace, ignoring whitespace between them. String contents are left alone.
func dropTrailingCommas(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in))
	inString := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(in) && isSpace(in[j]) {
				j++
			}
			if j < len(in) && (in[j] == ']' || in[j] == '}') {
				continue
			}
		}
		out = append(out, ch)
	}
	return string(out)
}

// quoteBareKeys turns `{insight": ...` or `, confidence": ...` into properly
// quoted keys. Only a run of letters and underscores directly followed by `":`
// outside a string counts as a key missing its opening quote.
func quoteBareKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)
	inString := false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		out = append(out, ch)
		if inString {
			if ch == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if ch == '"' {
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		if ch != '{' && ch != ',' {
			continue
		}

		keyStart := i + 1
		for keyStart < len(in) && isSpace(in[keyStart]) {
			keyStart++
		}
		keyEnd := keyStart
		for keyEnd < len(in) && (isLetter(in[keyEnd]) || in[keyEnd] == '_') {
			keyEnd++
		}
		if keyEnd > keyStart && keyEnd+1 < len(in) && in[keyEnd] == '"' && in[keyEnd+1] == ':' {
			out = append(out, in[i+1:keyStart]...)
			out = append(out, '"')
			// The key's closing quote is consumed here so it does not open a string.
			out = append(out, in[keyStart:keyEnd+1]...)
			i = keyEnd
		}
	}
	return string(out)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
