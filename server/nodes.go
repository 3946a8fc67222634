package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/graph"
)

type addNodeRequest struct {
	Role     workflow.Role        `json:"role"`
	Config   *workflow.NodeConfig `json:"config,omitempty"`
	Position *workflow.Position   `json:"position,omitempty"`
}

type connectRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) addNode(c fiber.Ctx) error {
	var req addNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	var opts []graph.NodeOption
	if req.Config != nil {
		opts = append(opts, graph.WithConfig(*req.Config))
	}
	if req.Position != nil {
		opts = append(opts, graph.WithPosition(*req.Position))
	}

	id, err := s.store.AddNode(req.Role, opts...)
	s.mutated("add_node", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) listNodes(c fiber.Ctx) error {
	return c.JSON(s.store.Snapshot().Nodes)
}

func (s *Server) getNode(c fiber.Ctx) error {
	n, ok := s.store.Node(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "node not found"})
	}
	return c.JSON(n)
}

func (s *Server) updateNode(c fiber.Ctx) error {
	var cfg workflow.NodeConfig
	if err := c.Bind().JSON(&cfg); err != nil {
		return badBody(c, err)
	}
	err := s.store.UpdateNodeConfig(c.Params("id"), cfg)
	s.mutated("update_node", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) moveNode(c fiber.Ctx) error {
	var pos workflow.Position
	if err := c.Bind().JSON(&pos); err != nil {
		return badBody(c, err)
	}
	err := s.store.MoveNode(c.Params("id"), pos)
	s.mutated("move_node", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) removeNode(c fiber.Ctx) error {
	err := s.store.RemoveNode(c.Params("id"))
	s.mutated("remove_node", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Selection ─────────────────────────────────────────────────────────

func (s *Server) selectNode(c fiber.Ctx) error {
	if err := s.store.Select(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) getSelection(c fiber.Ctx) error {
	n, ok := s.store.Selected()
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(n)
}

// updateSelection is the config panel's change callback: the body replaces
// the selected node's config wholesale.
func (s *Server) updateSelection(c fiber.Ctx) error {
	var cfg workflow.NodeConfig
	if err := c.Bind().JSON(&cfg); err != nil {
		return badBody(c, err)
	}
	err := s.store.UpdateSelected(cfg)
	s.mutated("update_node", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) clearSelection(c fiber.Ctx) error {
	s.store.ClearSelection()
	return c.SendStatus(fiber.StatusNoContent)
}

// ── Edges ─────────────────────────────────────────────────────────────

func (s *Server) connect(c fiber.Ctx) error {
	var req connectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badBody(c, err)
	}
	edge, err := s.store.Connect(req.Source, req.Target)
	s.mutated("connect", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (s *Server) listEdges(c fiber.Ctx) error {
	return c.JSON(s.store.Snapshot().Edges)
}

func (s *Server) clear(c fiber.Ctx) error {
	s.store.Clear()
	s.mutated("clear", nil)
	return c.SendStatus(fiber.StatusNoContent)
}
