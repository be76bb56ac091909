package descriptions

import "sort"

// Long-form tool descriptions shown to MCP clients.

const (
	// Template lifecycle
	TemplateLoadDescription = `Load a form template (JSON or YAML) into the editing session.

**When to use:** Before any other document tool. The template id from the file becomes the document id.

**What happens:** Saved positions are normalized to percentage space. Legacy pixel positions are migrated against the image size, or an 800x600 frame when the size was never recorded. Positions of fields that no longer exist are dropped.

**Examples:**
• "Load cv/basic.yaml and show me its fields"
• "Open swot.json so I can move the strengths box"

**Best practices:** Paths are relative to the configured directory. Loading the same id again replaces the open document.`

	TemplateSaveDescription = `Write a loaded template back to disk with its current positions.

**When to use:** After moving or resizing fields, or to store a reusable blank copy.

**Examples:**
• "Save the cv template"
• "Save a blank copy of the resume as resume-blank.yaml"

**Best practices:** Saved files always declare percentage positions, so loading them again never re-migrates. Use blank=true to clear the filled-in values from the written copy.`

	TemplateListDescription = `List template files under the configured directory and the documents already loaded.

**When to use:** Discovering what can be loaded, or checking which documents are open and whether a gesture is active.

**Examples:**
• "Which templates are available?"
• "Find templates matching 'swt'" (fuzzy match on file name)`

	DisplaySetDescription = `Tell the session the pixel size the document is currently drawn at.

**When to use:** Whenever the host's canvas size changes. Pointer coordinates and rendered boxes are measured in this frame.

**Notes:** Stored positions are percentages, so changing the display size rescales every box without rewriting anything. An active gesture is cancelled because its deltas were measured in the old frame.`

	EditModeSetDescription = `Turn edit mode on or off for a document.

**When to use:** Enable before dragging or resizing. Disable to return to read-only preview.

**Notes:** Turning edit mode off ends any drag or resize immediately. The last committed move is kept.`

	FieldValueSetDescription = `Set the value of a field.

**When to use:** Filling in the form. Fields with blank values are not drawn on the overlay or in exports.

**Example:** "Set name to Ada Lovelace on the cv template"`

	FieldRemoveDescription = `Delete a field and its stored position from a template.

**When to use:** Cleaning up templates after OCR produced spurious fields.`

	PositionGetDescription = `Get a field's box in percentage space and in pixels of the current display frame.

**Notes:** A field without a stored box reports the default box (100,100 250x40 pixels) without storing it.`

	PositionSetDescription = `Store a box for a field.

**When to use:** Placing a field numerically instead of dragging it.

**Parameters:** space selects how the box is read: "pixel" (relative to the display frame), "percent", or "auto" which treats boxes whose values all fit the percentage ranges as percentages.

**Best practices:** Always pass an explicit space. Small pixel boxes on large images fit the percentage ranges and would be misread under "auto".`

	PointerDownDescription = `Press the pointer at a display pixel, starting a drag or resize.

**How it works:** Without field_id the field is hit-tested: a resize handle (corner or edge midpoint) within a few pixels wins, otherwise the topmost box containing the point is dragged. With field_id and handle, that gesture starts directly.

**Rules:** Edit mode must be on. Only one gesture can be active across all documents. A resize replaces an active drag; a drag is refused while another gesture is active.`

	PointerMoveDescription = `Move the pointer during a gesture.

**How it works:** The delta from the pointer-down position is applied to the box as it was when the gesture started. Resizes never shrink a box below 100x30 pixels; the edge opposite the dragged handle stays put. Every move is committed to the position store.`

	PointerUpDescription = `Release the pointer, ending the active gesture.

**Returns:** The final stored position of the field that was being edited.`

	OverlayRenderDescription = `Get the draw list for a document at its display frame.

**Returns:** One entry per field with a non-blank value: its pixel box, content, header flag and, in edit mode, the eight resize handle anchors. Excluded fields (email by default) are never listed.

**Notes:** Fields without a stored position get the default box, which is stored so it stays put when the frame changes.`

	PositionsExportDescription = `Get the persisted field-id to percentage-box map of a document.

**When to use:** Inspecting exactly what will be written on save.`

	DocumentExportDescription = `Render a document to a PDF, one page per value set.

**How it works:** Pages are drawn at the image's natural size times the configured export scale, independent of any on-screen display size. Rich-text values are flattened to plain text. Pages render in parallel.

**Examples:**
• "Export the cv to out/cv.pdf"
• "Export three filled copies of the certificate, one per attendee"`

	DocumentInspectDescription = `Read back a PDF under the configured directory and report its page count and page sizes.

**When to use:** Verifying an export.`

	ServerInfoDescription = `Get server configuration, the tool list, template files in the configured directory and usage guidance.

**When to use:** First call in a new session.`
)

// ToolDescriptions maps tool names to their descriptions.
var ToolDescriptions = map[string]string{
	"template_load":    TemplateLoadDescription,
	"template_save":    TemplateSaveDescription,
	"template_list":    TemplateListDescription,
	"display_set":      DisplaySetDescription,
	"edit_mode_set":    EditModeSetDescription,
	"field_value_set":  FieldValueSetDescription,
	"field_remove":     FieldRemoveDescription,
	"position_get":     PositionGetDescription,
	"position_set":     PositionSetDescription,
	"pointer_down":     PointerDownDescription,
	"pointer_move":     PointerMoveDescription,
	"pointer_up":       PointerUpDescription,
	"overlay_render":   OverlayRenderDescription,
	"positions_export": PositionsExportDescription,
	"document_export":  DocumentExportDescription,
	"document_inspect": DocumentInspectDescription,
	"server_info":      ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
