package server

import (
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/workflow"
)

type saveRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// saveWorkflow persists the current session graph.
func (s *Server) saveWorkflow(c fiber.Ctx) error {
	var req saveRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badBody(c, err)
		}
	}
	w, err := s.repo.Save(c.Context(), &workflow.Workflow{
		ID:    req.ID,
		Name:  req.Name,
		State: s.store.Snapshot(),
	})
	if err != nil {
		return s.fail(c, err)
	}
	s.logger.Info("workflow saved", "id", w.ID, "nodes", len(w.State.Nodes))
	return c.Status(fiber.StatusCreated).JSON(w.Summarize())
}

func (s *Server) listWorkflows(c fiber.Ctx) error {
	list, err := s.repo.List(c.Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(list)
}

// getWorkflow returns a persisted workflow as a workflow.json envelope.
func (s *Server) getWorkflow(c fiber.Ctx) error {
	w, err := s.repo.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.exportDocument(w.State))
}

// loadWorkflow replaces the session graph with a persisted one.
func (s *Server) loadWorkflow(c fiber.Ctx) error {
	w, err := s.repo.Get(c.Context(), c.Params("id"))
	if err == nil {
		err = s.store.Restore(w.State)
	}
	s.mutated("load", err)
	if err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteWorkflow(c fiber.Ctx) error {
	if err := s.repo.Delete(c.Context(), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
