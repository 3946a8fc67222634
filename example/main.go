package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/document"
	"github.com/meikuraledutech/workflow/graph"
	"github.com/meikuraledutech/workflow/memory"
	"github.com/meikuraledutech/workflow/postgres"
)

func main() {
	ctx := context.Background()

	// Wire up the postgres implementation behind the Repository interface
	// when DATABASE_URL is set; otherwise keep everything in memory.
	var repo workflow.Repository = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()

		pg := postgres.New(pool)
		if err := pg.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println("schema created")
		repo = pg
	}

	// ── Build a graph on the canvas ───────────────────────────────────
	store := graph.New()
	agent := workflow.AgentSpec{}.
		AddTool(workflow.ToolGetOrderDetailsMF).
		AddSopFunction(workflow.SopGetSipSop)
	agentID, err := store.AddNode(workflow.RoleAgent, graph.WithConfig(workflow.NodeConfig{
		Name:        "Agent 1",
		Description: "Looks up the order",
		IsStartNode: true,
		Spec:        agent,
	}))
	if err != nil {
		log.Fatalf("add agent: %v", err)
	}

	supervisor := workflow.SupervisorSpec{}.AddHuman()
	supervisorID, err := store.AddNode(workflow.RoleSupervisor, graph.WithConfig(workflow.NodeConfig{
		Name: "Supervisor 1",
		Spec: supervisor,
	}))
	if err != nil {
		log.Fatalf("add supervisor: %v", err)
	}

	edge, err := store.Connect(agentID, supervisorID)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	fmt.Printf("added %s, %s and edge %s\n", agentID, supervisorID, edge.ID)

	// ── Export ────────────────────────────────────────────────────────
	doc := document.Export(store)
	fmt.Println("\nworkflow data:")
	printJSON(doc.WorkflowData)
	fmt.Println("\n" + document.Mermaid(doc.WorkflowData))

	// ── Import into a fresh canvas ────────────────────────────────────
	raw, err := doc.Marshal()
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	restored := graph.New()
	if err := document.Import(bytes.NewReader(raw), restored); err != nil {
		log.Fatalf("import: %v", err)
	}
	fmt.Printf("imported %d nodes\n", restored.Len())

	// ── Save and retrieve ─────────────────────────────────────────────
	saved, err := repo.Save(ctx, &workflow.Workflow{Name: "order-support", State: restored.Snapshot()})
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	fmt.Println("\nworkflow retrieved:")
	printJSON(got)

	list, err := repo.List(ctx)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	fmt.Printf("\nworkflows (%d):\n", len(list))
	printJSON(list)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := repo.Delete(ctx, saved.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nworkflow deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
