package resolve

import "github.com/agentx-labs/blueprint/internal/project"

// option describes what a known tech-stack option implies.
type option struct {
	framework string
	language  string
	engine    string
}

var knownOptions = map[string]option{
	"python-fastapi": {framework: "FastAPI", language: "Python"},
	"python-django":  {framework: "Django", language: "Python"},
	"python-flask":   {framework: "Flask", language: "Python"},
	"node-express":   {framework: "Express", language: "JavaScript"},
	"node-nestjs":    {framework: "NestJS", language: "TypeScript"},
	"go-gin":         {framework: "Gin", language: "Go"},
	"go-chi":         {framework: "chi", language: "Go"},
	"java-spring":    {framework: "Spring Boot", language: "Java"},
	"ruby-rails":     {framework: "Rails", language: "Ruby"},
	"rust-axum":      {framework: "Axum", language: "Rust"},

	"react":        {framework: "React", language: "TypeScript"},
	"vue":          {framework: "Vue", language: "TypeScript"},
	"nextjs":       {framework: "Next.js", language: "TypeScript"},
	"svelte":       {framework: "Svelte", language: "TypeScript"},
	"angular":      {framework: "Angular", language: "TypeScript"},
	"react-native": {framework: "React Native", language: "TypeScript"},
	"flutter":      {framework: "Flutter", language: "Dart"},

	"postgresql": {engine: "PostgreSQL"},
	"mysql":      {engine: "MySQL"},
	"sqlite":     {engine: "SQLite"},
	"mongodb":    {engine: "MongoDB"},
	"redis":      {engine: "Redis"},
	"memcached":  {engine: "Memcached"},
	"rabbitmq":   {engine: "RabbitMQ"},
	"kafka":      {engine: "Kafka"},
	"nats":       {engine: "NATS"},
	"sqs":        {engine: "Amazon SQS"},
}

// codeRoles produce a framework and language. Infrastructure roles produce
// an engine.
func codeRole(r project.Role) bool {
	return r == project.RoleBackend || r == project.RoleFrontend
}

// describe returns the derived values for an option, falling back to the
// raw option string for anything not in the table.
func describe(r project.Role, opt string) option {
	o, ok := knownOptions[opt]
	if !ok {
		if codeRole(r) {
			return option{framework: opt}
		}
		return option{engine: opt}
	}
	return o
}
