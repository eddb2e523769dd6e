package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/JakeFAU/soccer-vault/internal/storage/local"
)

// Format selects the on-disk catalog encoding.
type Format string

// Supported catalog formats.
const (
	FormatTypeScript Format = "typescript"
	FormatJSON       Format = "json"
)

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTypeScript, FormatJSON:
		return f, nil
	case "ts":
		return FormatTypeScript, nil
	default:
		return "", fmt.Errorf("unknown catalog format %q", s)
	}
}

var moduleTemplate = template.Must(template.New("catalog").Parse(`// Auto-generated product data
// Generated on: {{.GeneratedAt}}
// Source: {{.Source}}

export interface Product {
  id: string;
  title: string;
  price: number;
  displayPrice?: number;
  originalPrice?: number;
  sizes: string[];
  category: string;
  images: string[];
  description: string;
  isNew?: boolean;
  isOnSale?: boolean;
  inStock: boolean;
  brand: string;
  season?: string;
  material?: string;
  club?: string;
  league?: string;
  tags?: string[];
}

export const products: Product[] = {{.Products}};

export const categories = {{.Categories}};

export const brands = {{.Brands}};

export const sizes = {{.Sizes}};

export default products;
`))

type moduleView struct {
	GeneratedAt string
	Source      string
	Products    string
	Categories  string
	Brands      string
	Sizes       string
}

// Encode renders c in the given format.
func Encode(c Catalog, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		out, err := marshalIndent(c)
		if err != nil {
			return nil, fmt.Errorf("encode catalog json: %w", err)
		}
		return []byte(out + "\n"), nil
	case FormatTypeScript:
		return encodeModule(c)
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}

func encodeModule(c Catalog) ([]byte, error) {
	view := moduleView{
		GeneratedAt: c.GeneratedAt.UTC().Format(time.RFC3339Nano),
		Source:      c.Source,
	}
	fields := []struct {
		dst *string
		src any
	}{
		{&view.Products, c.Products},
		{&view.Categories, c.Categories},
		{&view.Brands, c.Brands},
		{&view.Sizes, c.Sizes},
	}
	for _, f := range fields {
		s, err := marshalIndent(f.src)
		if err != nil {
			return nil, fmt.Errorf("encode catalog module: %w", err)
		}
		*f.dst = s
	}
	var buf bytes.Buffer
	if err := moduleTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render catalog module: %w", err)
	}
	return buf.Bytes(), nil
}

// marshalIndent keeps club names like "Brighton & Hove Albion" readable.
func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FilePublisher writes the whole catalog to a single file.
type FilePublisher struct {
	path   string
	format Format
}

// NewFilePublisher builds a publisher for path.
func NewFilePublisher(path string, format Format) (*FilePublisher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	parsed, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	return &FilePublisher{path: path, format: parsed}, nil
}

// Name identifies the publisher in logs.
func (p *FilePublisher) Name() string {
	return "file:" + p.path
}

// Publish replaces the catalog file.
func (p *FilePublisher) Publish(_ context.Context, c Catalog) error {
	data, err := Encode(c, p.format)
	if err != nil {
		return err
	}
	if err := local.WriteFileAtomic(p.path, data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
