package docs

// @title BizDoc Services API
// @version 1.0
// @description Business document generation, export and billing API
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@one-green.io

// @BasePath /
// @schemes http https
