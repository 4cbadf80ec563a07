package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func rehabilitation() engine.Migration {
	return engine.Migration{
		ID:   "20240122080000_rehabilitation",
		Name: "rehabilitation",
		Up: []ast.Operation{
			table("RehabPlans",
				guid("AdmissionId"),
				guid("TherapistUserId"),
				text("Discipline", 30),
				date("StartDate", false),
				date("EndDate", true),
				optText("Goals", 0),
			),
			fk("RehabPlans", "AdmissionId", "Admissions", ast.Cascade),
			fk("RehabPlans", "TherapistUserId", "Users", ast.Restrict),
			ix("RehabPlans", "AdmissionId"),

			table("RehabSessions",
				guid("RehabPlanId"),
				timestamp("SessionAt"),
				span("Duration"),
				optText("Notes", 0),
				optGuid("PerformedByUserId"),
			),
			fk("RehabSessions", "RehabPlanId", "RehabPlans", ast.Cascade),
			fk("RehabSessions", "PerformedByUserId", "Users", ast.SetNull),
			ix("RehabSessions", "RehabPlanId", "SessionAt"),
		},
		Down: dropTables("RehabSessions", "RehabPlans"),
	}
}
