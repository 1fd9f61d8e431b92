package parser

// Node-type tables below cover decision/nesting node types (for complexity
// scoring) and function/class/method node types (for name and signature
// extraction). Kept as plain data, no tree-sitter import, so both the cgo
// implementation and the !cgo stub can share them without either one
// paying for the other's import.

func functionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "arrow_function", "generator_function_declaration"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return nil // top-level Java methods live inside class bodies, see methodNodeTypes
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

func classNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"type_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item", "impl_item"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case LangKotlin:
		return []string{"class_declaration", "interface_declaration", "object_declaration"}
	default:
		return nil
	}
}

// methodNodeTypes returns node types for methods found while walking inside
// a class/type body (as opposed to functionNodeTypes, matched at file
// scope). Go has none: receivers make every method top-level already.
func methodNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return nil
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"method_definition"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

func decisionNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{
			"if_statement", "for_statement", "range_clause",
			"expression_case", "type_case", "select_statement",
			"communication_case", "binary_expression",
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"do_statement", "switch_case", "catch_clause", "ternary_expression",
			"binary_expression", "optional_chain_expression",
		}
	case LangPython:
		return []string{
			"if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "with_statement", "boolean_operator", "conditional_expression",
			"list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression",
		}
	case LangRust:
		return []string{
			"if_expression", "match_expression", "match_arm", "while_expression",
			"loop_expression", "for_expression", "binary_expression",
		}
	case LangJava:
		return []string{
			"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_expression", "switch_block_statement_group",
			"catch_clause", "ternary_expression", "binary_expression",
		}
	case LangKotlin:
		return []string{
			"if_expression", "when_expression", "when_entry", "for_statement",
			"while_statement", "do_while_statement", "catch_block",
			"binary_expression", "elvis_expression",
		}
	default:
		return nil
	}
}

func nestingNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{
			"if_statement", "for_statement", "select_statement",
			"type_switch_statement", "expression_switch_statement", "func_literal",
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{
			"if_statement", "for_statement", "for_in_statement", "while_statement",
			"do_statement", "switch_statement", "try_statement", "arrow_function", "function_expression",
		}
	case LangPython:
		return []string{
			"if_statement", "for_statement", "while_statement", "try_statement", "with_statement",
			"lambda", "list_comprehension", "dictionary_comprehension", "set_comprehension", "generator_expression",
		}
	case LangRust:
		return []string{
			"if_expression", "match_expression", "while_expression", "loop_expression",
			"for_expression", "closure_expression",
		}
	case LangJava:
		return []string{
			"if_statement", "for_statement", "enhanced_for_statement", "while_statement",
			"do_statement", "switch_expression", "try_statement", "lambda_expression",
		}
	case LangKotlin:
		return []string{
			"if_expression", "when_expression", "for_statement", "while_statement",
			"do_while_statement", "try_expression", "lambda_literal",
		}
	default:
		return nil
	}
}

// callNodeTypes returns node types representing a call expression, used to
// find CallSite candidates for Phase 2 cross-file resolution.
func callNodeTypes(lang Language) []string {
	switch lang {
	case LangGo, LangJavaScript, LangTypeScript, LangTSX, LangRust, LangKotlin:
		return []string{"call_expression"}
	case LangPython:
		return []string{"call"}
	case LangJava:
		return []string{"method_invocation"}
	default:
		return nil
	}
}

// importNodeTypes returns node types for import/use declarations.
func importNodeTypes(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{"import_spec"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"import_statement"}
	case LangPython:
		return []string{"import_statement", "import_from_statement"}
	case LangRust:
		return []string{"use_declaration"}
	case LangJava:
		return []string{"import_declaration"}
	case LangKotlin:
		return []string{"import_header"}
	default:
		return nil
	}
}

// inheritanceNodeTypes returns node types for extends/implements clauses.
func inheritanceNodeTypes(lang Language) []string {
	switch lang {
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"class_heritage"}
	case LangJava:
		return []string{"superclass", "super_interfaces"}
	case LangKotlin:
		return []string{"delegation_specifier"}
	default:
		return nil
	}
}

// classKind maps a class-family node to its ObjectType string: "class",
// "interface", or "type".
func classKind(lang Language, nodeType string) string {
	switch lang {
	case LangGo:
		return "type"
	case LangJavaScript, LangTypeScript, LangTSX:
		if nodeType == "interface_declaration" {
			return "interface"
		}
		return "class"
	case LangPython:
		return "class"
	case LangRust:
		if nodeType == "trait_item" {
			return "interface"
		}
		return "type"
	case LangJava, LangKotlin:
		switch nodeType {
		case "interface_declaration":
			return "interface"
		case "object_declaration":
			return "class"
		}
		return "class"
	}
	return "type"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
