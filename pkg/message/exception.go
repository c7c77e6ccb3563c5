package message

import (
	"fmt"
	"strings"
)

// CombineMessages renders every exception in e as "Type : message", one per
// line. Inner exceptions follow their parent, prefixed with "----" per depth.
func CombineMessages(e ErrorMetadata) string {
	if len(e.Messages) == 0 && len(e.ExceptionTypes) == 0 {
		return ""
	}
	return exceptionMessage(e, 0, 0)
}

// CombineStackTraces renders the stack trace of the outermost exception
// followed by the traces of its inner exceptions.
func CombineStackTraces(e ErrorMetadata) string {
	if len(e.StackTraces) == 0 {
		return ""
	}
	return exceptionStackTrace(e, 0)
}

func exceptionMessage(e ErrorMetadata, index, depth int) string {
	var sb strings.Builder
	if depth > 0 {
		sb.WriteString(strings.Repeat("----", depth))
		sb.WriteString(" ")
	}
	if t := at(e.ExceptionTypes, index); t != "" {
		sb.WriteString(t)
		sb.WriteString(" : ")
	}
	sb.WriteString(at(e.Messages, index))

	for _, child := range children(e, index) {
		sb.WriteString("\n")
		sb.WriteString(exceptionMessage(e, child, depth+1))
	}
	return sb.String()
}

func exceptionStackTrace(e ErrorMetadata, index int) string {
	var sb strings.Builder
	sb.WriteString(at(e.StackTraces, index))

	kids := children(e, index)
	for i, child := range kids {
		inner := exceptionStackTrace(e, child)
		if inner == "" {
			continue
		}
		sb.WriteString("\n")
		if len(kids) > 1 {
			fmt.Fprintf(&sb, "----- Inner Stack Trace #%d (%s) -----", i+1, at(e.ExceptionTypes, child))
		} else {
			sb.WriteString("----- Inner Stack Trace -----")
		}
		sb.WriteString("\n")
		sb.WriteString(inner)
	}
	return sb.String()
}

func children(e ErrorMetadata, parent int) []int {
	var out []int
	for i := parent + 1; i < len(e.ExceptionParentIndices); i++ {
		if e.ExceptionParentIndices[i] == parent {
			out = append(out, i)
		}
	}
	return out
}

func at(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}
