package popup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/morezero/text-decoder/pkg/decoder"
)

const metadataTemplate = `{{if .Header}}<div class="metadata-title">JWT Header:</div>
<pre style="margin: 4px 0; white-space: pre-wrap;">{{json .Header}}</pre>
{{end}}{{if .Payload}}<div class="metadata-title" style="margin-top: 8px;">JWT Payload:</div>
<pre style="margin: 4px 0; white-space: pre-wrap;">{{json .Payload}}</pre>
{{end}}`

var metadataTmpl = template.Must(template.New("metadata").Funcs(template.FuncMap{
	"json": indentJSON,
}).Parse(metadataTemplate))

func indentJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// RenderMetadata renders the header and payload blocks of the metadata panel.
// It returns "" when there is nothing to show.
func RenderMetadata(meta *decoder.Metadata) (template.HTML, error) {
	if meta == nil || (len(meta.Header) == 0 && len(meta.Payload) == 0) {
		return "", nil
	}
	var buf bytes.Buffer
	if err := metadataTmpl.Execute(&buf, meta); err != nil {
		return "", fmt.Errorf("%s - metadata template execute: %w", logPrefix, err)
	}
	return template.HTML(buf.String()), nil
}
