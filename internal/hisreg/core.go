package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func core() engine.Migration {
	supervisor := fk("Users", "SupervisorUserId", "Users", ast.SetNull)
	supervisor.Deferred = true

	return engine.Migration{
		ID:   "20240101080000_core",
		Name: "core",
		Up: []ast.Operation{
			table("Users",
				text("UserName", 64),
				optText("Email", 256),
				text("DisplayName", 200),
				optGuid("SupervisorUserId"),
				flag("IsActive", true),
				createdAt("CreatedAt"),
			),
			supervisor,
			ux("Users", "UserName"),

			table("Patients",
				text("MRN", 32),
				text("FirstName", 100),
				text("LastName", 100),
				date("DateOfBirth", false),
				optText("Sex", 1),
				createdAt("CreatedAt"),
			),
			ux("Patients", "MRN"),
			ix("Patients", "LastName", "FirstName"),

			table("Admissions",
				guid("PatientId"),
				timestamp("AdmittedAt"),
				optTimestamp("DischargedAt"),
				text("Ward", 50),
				optGuid("AttendingUserId"),
			),
			fk("Admissions", "PatientId", "Patients", ast.Cascade),
			fk("Admissions", "AttendingUserId", "Users", ast.SetNull),
			ix("Admissions", "PatientId"),
			ix("Admissions", "AttendingUserId"),
		},
		Down: dropTables("Admissions", "Patients", "Users"),
	}
}
