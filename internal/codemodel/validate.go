package codemodel

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field " + e.Field + ": " + e.Message
}

// Validate checks the invariants of a CodeObject.
func (o *CodeObject) Validate() error {
	if o.ID == "" {
		return &ValidationError{Field: "ID", Message: "id cannot be empty"}
	}
	if o.Name == "" {
		return &ValidationError{Field: "Name", Message: "name cannot be empty"}
	}
	if o.FilePath == "" {
		return &ValidationError{Field: "FilePath", Message: "file_path cannot be empty"}
	}
	if o.StartLine < 1 {
		return &ValidationError{Field: "StartLine", Message: "start_line must be 1-based"}
	}
	if o.EndLine < o.StartLine {
		return &ValidationError{Field: "EndLine", Message: "end_line cannot precede start_line"}
	}
	switch o.ObjectType {
	case ObjectClass, ObjectInterface, ObjectEnum, ObjectMethod, ObjectFunction,
		ObjectField, ObjectVariable, ObjectConstant, ObjectProperty, ObjectType_, ObjectImport:
	default:
		return &ValidationError{Field: "ObjectType", Message: "unrecognized object_type " + string(o.ObjectType)}
	}
	return nil
}

// Validate checks the invariants of a DocumentNode.
func (n *DocumentNode) Validate() error {
	if n.ID == "" {
		return &ValidationError{Field: "ID", Message: "id cannot be empty"}
	}
	switch n.NodeType {
	case NodeHeading, NodeParagraph, NodeCodeBlock, NodeConfigKey:
	default:
		return &ValidationError{Field: "NodeType", Message: "unrecognized node_type " + string(n.NodeType)}
	}
	return nil
}

// Validate checks the invariants of a Relationship: confidence, when
// present in Metadata, must lie in [0, 1] -- an unpinned but bounded scale.
func (r *Relationship) Validate() error {
	if r.SourceID == "" {
		return &ValidationError{Field: "SourceID", Message: "source_id cannot be empty"}
	}
	if _, ok := ReverseMap[r.RelationType]; !ok {
		return &ValidationError{Field: "RelationType", Message: "unrecognized relation_type " + string(r.RelationType)}
	}
	if conf, ok := r.Metadata["confidence"]; ok {
		v, isFloat := conf.(float64)
		if !isFloat || v < 0 || v > 1 {
			return &ValidationError{Field: "Metadata.confidence", Message: "confidence must be a float in [0, 1]"}
		}
	}
	return nil
}
