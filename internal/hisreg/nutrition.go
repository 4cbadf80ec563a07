package hisreg

import (
	"github.com/hlop3z/hisdb/internal/ast"
	"github.com/hlop3z/hisdb/internal/engine"
)

func nutrition() engine.Migration {
	return engine.Migration{
		ID:   "20240129080000_nutrition",
		Name: "nutrition",
		Up: []ast.Operation{
			table("NutritionScreenings",
				guid("AdmissionId"),
				timestamp("ScreenedAt"),
				integer("Score"),
				text("RiskLevel", 20),
				optGuid("ScreenedByUserId"),
			),
			fk("NutritionScreenings", "AdmissionId", "Admissions", ast.Cascade),
			fk("NutritionScreenings", "ScreenedByUserId", "Users", ast.SetNull),
			ix("NutritionScreenings", "AdmissionId"),

			table("DietOrders",
				guid("AdmissionId"),
				text("DietCode", 30),
				optText("Instructions", 500),
				timestamp("StartAt"),
				optTimestamp("EndAt"),
				flag("IsActive", true),
				guid("OrderedByUserId"),
			),
			fk("DietOrders", "AdmissionId", "Admissions", ast.Cascade),
			fk("DietOrders", "OrderedByUserId", "Users", ast.Restrict),
			ix("DietOrders", "AdmissionId", "IsActive"),
		},
		Down: dropTables("DietOrders", "NutritionScreenings"),
	}
}
