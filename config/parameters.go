package config

import (
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// LoadParameters overlays every parameter stored under prefix in SSM Parameter Store
// onto config. The last path segment becomes the key ("/ml4e/prod/DB_PASSWORD" -> DB_PASSWORD).
// Keys already present in config are left untouched so the environment always wins.
func LoadParameters(ctx context.Context, config map[string]string, client ssm.GetParametersByPathAPIClient, prefix string) (int, error) {
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return loaded, fmt.Errorf("failed to read parameters under %s: %w", prefix, err)
		}

		for _, param := range page.Parameters {
			key := path.Base(aws.ToString(param.Name))
			if key == "" || key == "/" || key == "." {
				continue
			}
			if existing, ok := config[key]; ok && existing != "" {
				log.Debug().Str("key", key).Msg("Environment overrides SSM parameter")
				continue
			}
			config[key] = aws.ToString(param.Value)
			loaded++
		}
	}

	return loaded, nil
}
