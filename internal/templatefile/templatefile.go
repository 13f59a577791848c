// Package templatefile reads and writes checklist templates as HCL.
//
//	template "Vehicle check" {
//	  questions = ["Oil level", "Tyre pressure"]
//
//	  question "Lights" {}
//	}
//
// The questions attribute comes first, followed by question blocks in file
// order. Files ending in .json are parsed as HCL JSON.
package templatefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Definition is one template declared in a file
type Definition struct {
	Title     string
	Questions []string
}

type hclFile struct {
	Templates []*hclTemplate `hcl:"template,block"`
}

type hclTemplate struct {
	Title          string         `hcl:"title,label"`
	Questions      []string       `hcl:"questions,optional"`
	QuestionBlocks []*hclQuestion `hcl:"question,block"`
}

type hclQuestion struct {
	Text string `hcl:"text,label"`
}

// ParseFile reads every template block from path
func ParseFile(path string) ([]Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return Parse(src, path)
}

// Parse decodes templates from src. filename is used in diagnostics and
// selects the JSON syntax when it ends in .json.
func Parse(src []byte, filename string) ([]Definition, error) {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		file, diags = parser.ParseJSON(src, filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}
	if len(parsed.Templates) == 0 {
		return nil, fmt.Errorf("%s: no template blocks found", filename)
	}

	defs := make([]Definition, 0, len(parsed.Templates))
	for i, t := range parsed.Templates {
		questions := append([]string(nil), t.Questions...)
		for _, q := range t.QuestionBlocks {
			questions = append(questions, q.Text)
		}

		title, questions, err := models.NormalizeTemplateInput(t.Title, questions)
		if err != nil {
			return nil, fmt.Errorf("%s: template %d (%q): %w", filename, i+1, t.Title, err)
		}
		defs = append(defs, Definition{Title: title, Questions: questions})
	}
	return defs, nil
}

// Format renders definitions as HCL using the questions attribute form
func Format(defs []Definition) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, d := range defs {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("template", []string{d.Title})

		vals := make([]cty.Value, len(d.Questions))
		for j, q := range d.Questions {
			vals[j] = cty.StringVal(q)
		}
		if len(vals) == 0 {
			block.Body().SetAttributeValue("questions", cty.ListValEmpty(cty.String))
		} else {
			block.Body().SetAttributeValue("questions", cty.ListVal(vals))
		}
	}
	return f.Bytes()
}

// FromTemplates converts stored templates for Format
func FromTemplates(ts []models.Template) []Definition {
	defs := make([]Definition, len(ts))
	for i, t := range ts {
		defs[i] = Definition{Title: t.Title, Questions: append([]string(nil), t.Questions...)}
	}
	return defs
}
