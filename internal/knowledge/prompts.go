package knowledge

import (
	"encoding/json"
	"fmt"
	"strings"

	"autodocs/internal/extractor"
)

const (
	overviewSystem = "You are a technical documentation expert. Generate clear, concise, and accurate documentation for the code."
	functionSystem = "Generate clear and accurate JSDoc-style documentation for this function."
	classSystem    = "Generate clear and accurate JSDoc-style documentation for this class."
	methodSystem   = "Generate clear and accurate JSDoc-style documentation for this method."
)

// TokenLimits caps reply length per kind of documented item.
type TokenLimits struct {
	Overview int
	Function int
	Class    int
	Method   int
}

// PromptBuilder constructs the generation request for each documented item.
type PromptBuilder struct {
	Limits TokenLimits
}

func (pb *PromptBuilder) BuildOverviewPrompt(fileName string, rec extractor.Record) Prompt {
	var sb strings.Builder
	sb.WriteString("Please provide a clear and concise overview of this JavaScript/TypeScript file:\n\n")
	fmt.Fprintf(&sb, "File: %s\n", fileName)
	fmt.Fprintf(&sb, "Imports: %s\n", toJSON(rec.Imports))
	fmt.Fprintf(&sb, "Number of Functions: %d\n", len(rec.Functions))
	fmt.Fprintf(&sb, "Number of Classes: %d\n", len(rec.Classes))
	sb.WriteString("\nPlease include:\n")
	sb.WriteString("1. The main purpose of this file\n")
	sb.WriteString("2. Key components and their relationships\n")
	sb.WriteString("3. Any important dependencies\n")
	sb.WriteString("4. Usage examples if applicable\n")
	sb.WriteString("\nFormat the response in markdown.")

	return Prompt{System: overviewSystem, User: sb.String(), MaxTokens: pb.Limits.Overview}
}

func (pb *PromptBuilder) BuildFunctionPrompt(fn extractor.FunctionInfo) Prompt {
	var sb strings.Builder
	sb.WriteString("Please generate JSDoc documentation for this JavaScript/TypeScript function:\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", fn.Name)
	fmt.Fprintf(&sb, "Type: %s\n", fn.Kind)
	fmt.Fprintf(&sb, "Parameters: %s\n", toJSON(fn.Params))
	fmt.Fprintf(&sb, "Async: %t\n", fn.IsAsync)
	fmt.Fprintf(&sb, "Generator: %t\n", fn.IsGenerator)
	sb.WriteString("\nInclude:\n")
	sb.WriteString("1. Function description\n")
	sb.WriteString("2. Parameter descriptions with types\n")
	sb.WriteString("3. Return value description\n")
	sb.WriteString("4. Example usage\n")
	sb.WriteString("5. Any throws/exceptions if applicable\n")
	sb.WriteString("\nFormat the response in JSDoc style.")

	return Prompt{System: functionSystem, User: sb.String(), MaxTokens: pb.Limits.Function}
}

func (pb *PromptBuilder) BuildClassPrompt(cls extractor.ClassInfo) Prompt {
	extends := cls.SuperClass
	if extends == "" {
		extends = "none"
	}

	var sb strings.Builder
	sb.WriteString("Please generate JSDoc documentation for this JavaScript/TypeScript class:\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", cls.Name)
	fmt.Fprintf(&sb, "Extends: %s\n", extends)
	fmt.Fprintf(&sb, "Number of Methods: %d\n", len(cls.Methods))
	sb.WriteString("\nInclude:\n")
	sb.WriteString("1. Class description\n")
	sb.WriteString("2. Constructor parameters if any\n")
	sb.WriteString("3. Important methods overview\n")
	sb.WriteString("4. Example usage\n")
	sb.WriteString("5. Any important notes or warnings\n")
	sb.WriteString("\nFormat the response in JSDoc style.")

	return Prompt{System: classSystem, User: sb.String(), MaxTokens: pb.Limits.Class}
}

func (pb *PromptBuilder) BuildMethodPrompt(m extractor.MethodInfo) Prompt {
	var sb strings.Builder
	sb.WriteString("Please generate JSDoc documentation for this class method:\n\n")
	fmt.Fprintf(&sb, "Name: %s\n", m.Name)
	fmt.Fprintf(&sb, "Kind: %s\n", m.Kind)
	fmt.Fprintf(&sb, "Static: %t\n", m.IsStatic)
	fmt.Fprintf(&sb, "Parameters: %s\n", toJSON(m.Params))
	sb.WriteString("\nInclude:\n")
	sb.WriteString("1. Method description\n")
	sb.WriteString("2. Parameter descriptions with types\n")
	sb.WriteString("3. Return value description\n")
	sb.WriteString("4. Example usage\n")
	sb.WriteString("5. Any throws/exceptions if applicable\n")
	sb.WriteString("\nFormat the response in JSDoc style.")

	return Prompt{System: methodSystem, User: sb.String(), MaxTokens: pb.Limits.Method}
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}
