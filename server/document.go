package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/document"
)

// exportDocument builds the envelope for the current graph and warns when
// same-named nodes will merge in the adjacency list.
func (s *Server) exportDocument(state workflow.FlowState) document.Document {
	if dups := document.DuplicateNames(state.Nodes); len(dups) > 0 {
		s.logger.Warn("duplicate node names merge in the adjacency list", "names", dups)
	}
	return document.FromState(state)
}

func (s *Server) export(c fiber.Ctx) error {
	doc := s.exportDocument(s.store.Snapshot())

	format := c.Query("format", "json")
	switch format {
	case "json":
		s.metrics.Export(format)
		return c.JSON(doc)
	case "yaml":
		out, err := doc.WorkflowData.YAML()
		if err != nil {
			return s.fail(c, err)
		}
		s.metrics.Export(format)
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Send(out)
	case "mermaid":
		s.metrics.Export(format)
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(document.Mermaid(doc.WorkflowData))
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": fmt.Sprintf("unknown format %q", format)})
}

func (s *Server) download(c fiber.Ctx) error {
	out, err := s.exportDocument(s.store.Snapshot()).Marshal()
	if err != nil {
		return s.fail(c, err)
	}
	s.metrics.Export("download")
	c.Attachment(document.FileName)
	c.Set(fiber.HeaderContentType, document.MIMEType)
	return c.Send(out)
}

// importDocument accepts either a raw JSON body or a multipart upload in
// the "file" field.
func (s *Server) importDocument(c fiber.Ctx) error {
	err := s.readImport(c)
	s.metrics.Import(err)
	s.mutated("import", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) readImport(c fiber.Ctx) error {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return document.Import(bytes.NewReader(c.Body()), s.store, document.WithMaxBytes(s.maxBytes))
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: missing file field: %v", workflow.ErrMalformedDocument, err)
	}
	if err := document.CheckFileName(fh.Filename); err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("workflow: open upload: %w", err)
	}
	defer f.Close()
	return document.Import(f, s.store, document.WithMaxBytes(s.maxBytes))
}
