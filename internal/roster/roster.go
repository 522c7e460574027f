// Copyright (c) 2026 Envision Co., Ltd.
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

// Package roster maps Korean employee names to their English names from the
// HR roster workbook. Deduction notices address employees by English name.
package roster

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Zero-based indices into a sheet row as GetRows returns it: the Korean name
// sits in the third column of the sheet, the English name in the fourth.
// Fixed by the HR template.
const (
	koreanNameColumn  = 2
	englishNameColumn = 3
)

// Roster maps Korean names to English names.
type Roster struct {
	names map[string]string
}

// Load reads the roster from the active sheet of an xlsx file. Rows missing
// either name are skipped; the header row is recognised by its non-name text
// and skipped implicitly the same way.
func Load(path string) (*Roster, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read roster sheet %s: %w", sheet, err)
	}

	names := make(map[string]string)
	for i, row := range rows {
		if i == 0 || len(row) <= englishNameColumn {
			continue
		}
		korean := strings.TrimSpace(row[koreanNameColumn])
		english := strings.TrimSpace(row[englishNameColumn])
		if korean == "" || english == "" {
			continue
		}
		names[korean] = english
	}
	return &Roster{names: names}, nil
}

// Empty returns a roster with no entries; every lookup passes through.
func Empty() *Roster {
	return &Roster{names: map[string]string{}}
}

// ToEnglish returns the English name for a Korean name, or the input
// unchanged when the roster has no entry. A roster gap must not block a
// deduction notice.
func (r *Roster) ToEnglish(korean string) string {
	if english, ok := r.names[korean]; ok {
		return english
	}
	return korean
}

// Len reports how many employees the roster maps.
func (r *Roster) Len() int {
	return len(r.names)
}
