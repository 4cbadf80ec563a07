package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func infectionControl() engine.Migration {
	isolationCase := ux("IsolationOrders", "HAICaseId")
	isolationCase.Filter = "[HAICaseId] IS NOT NULL"

	return engine.Migration{
		ID:   "20240115080000_infection_control",
		Name: "infection_control",
		Up: []ast.Operation{
			table("HAICases",
				guid("PatientId"),
				optGuid("AdmissionId"),
				text("Organism", 100),
				optText("Site", 50),
				timestamp("DetectedAt"),
				optGuid("ReportedByUserId"),
			),
			fk("HAICases", "PatientId", "Patients", ast.Cascade),
			fk("HAICases", "AdmissionId", "Admissions", ast.SetNull),
			fk("HAICases", "ReportedByUserId", "Users", ast.SetNull),
			ix("HAICases", "PatientId"),

			table("IsolationOrders",
				guid("PatientId"),
				optGuid("AdmissionId"),
				optGuid("HAICaseId"),
				text("IsolationType", 30),
				timestamp("OrderedAt"),
				optTimestamp("EndedAt"),
				guid("OrderedByUserId"),
			),
			fk("IsolationOrders", "PatientId", "Patients", ast.Cascade),
			fk("IsolationOrders", "AdmissionId", "Admissions", ast.SetNull),
			fk("IsolationOrders", "HAICaseId", "HAICases", ast.SetNull),
			fk("IsolationOrders", "OrderedByUserId", "Users", ast.Restrict),
			ix("IsolationOrders", "PatientId"),
			isolationCase,

			&ast.AddColumn{TableName: "Patients", Column: optText("InfectionAlert", 50)},
		},
		Down: append(
			[]ast.Operation{&ast.DropColumn{TableName: "Patients", Name: "InfectionAlert"}},
			dropTables("IsolationOrders", "HAICases")...,
		),
	}
}
