package dynamo

type Config struct {
	Region          string `env:"DYNAMO_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"DYNAMO_ENDPOINT"` // LocalStack or DynamoDB Local
	AccessKeyID     string `env:"DYNAMO_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"DYNAMO_SECRET_ACCESS_KEY"`
	Table           string `env:"DYNAMO_TABLE" envDefault:"mfa_authenticators"`
}
