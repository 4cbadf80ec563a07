package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func qualityIncidents() engine.Migration {
	return engine.Migration{
		ID:   "20240219080000_quality_incidents",
		Name: "quality_incidents",
		Up: []ast.Operation{
			table("Incidents",
				guid("ReportedByUserId"),
				optGuid("PatientId"),
				timestamp("OccurredAt"),
				text("Category", 50),
				integer("Severity"),
				text("Description", 0),
				text("Status", 20),
			),
			fk("Incidents", "ReportedByUserId", "Users", ast.Restrict),
			fk("Incidents", "PatientId", "Patients", ast.SetNull),
			ix("Incidents", "OccurredAt"),
			ix("Incidents", "PatientId"),

			table("IncidentActions",
				guid("IncidentId"),
				optGuid("AssignedToUserId"),
				text("Action", 500),
				date("DueDate", true),
				optTimestamp("CompletedAt"),
			),
			fk("IncidentActions", "IncidentId", "Incidents", ast.Cascade),
			fk("IncidentActions", "AssignedToUserId", "Users", ast.SetNull),
			ix("IncidentActions", "IncidentId"),

			table("MciEvents",
				text("Name", 200),
				timestamp("DeclaredAt"),
				optTimestamp("ClosedAt"),
				guid("DeclaredByUserId"),
			),
			fk("MciEvents", "DeclaredByUserId", "Users", ast.Restrict),

			table("MciVictims",
				guid("MciEventId"),
				optGuid("PatientId"),
				text("TriageTag", 10),
				timestamp("RegisteredAt"),
			),
			fk("MciVictims", "MciEventId", "MciEvents", ast.Cascade),
			fk("MciVictims", "PatientId", "Patients", ast.SetNull),
			ix("MciVictims", "MciEventId", "TriageTag"),
		},
		Down: dropTables("MciVictims", "MciEvents", "IncidentActions", "Incidents"),
	}
}
