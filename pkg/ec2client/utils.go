package ec2client

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bmatcuk/doublestar/v4"
)

const noName = "no-name"

// Name returns the instance's Name tag, or "no-name"
func Name(inst types.Instance) string {
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" && tag.Value != nil {
			return *tag.Value
		}
	}
	return noName
}

// Label formats an instance for the chooser as "<name> <id> [<state>]"
func Label(inst types.Instance) string {
	state := "unknown"
	if inst.State != nil && inst.State.Name != "" {
		state = string(inst.State.Name)
	}
	return fmt.Sprintf("%s %s [%s]", Name(inst), aws.ToString(inst.InstanceId), state)
}

func Labels(instances []types.Instance) []string {
	labels := make([]string, len(instances))
	for i, inst := range instances {
		labels[i] = Label(inst)
	}
	return labels
}

// FilterByName keeps instances whose Name tag matches pattern. An empty
// pattern keeps everything.
func FilterByName(instances []types.Instance, pattern string) ([]types.Instance, error) {
	if pattern == "" {
		return instances, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid name pattern %q", pattern)
	}

	var matched []types.Instance
	for _, inst := range instances {
		ok, err := doublestar.Match(pattern, Name(inst))
		if err != nil {
			return nil, fmt.Errorf("match name pattern %q: %w", pattern, err)
		}
		if ok {
			matched = append(matched, inst)
		}
	}
	return matched, nil
}

func PublicIP(inst types.Instance) (string, error) {
	if ip := aws.ToString(inst.PublicIpAddress); ip != "" {
		return ip, nil
	}
	return "", fmt.Errorf("no public ip address found for %s", aws.ToString(inst.InstanceId))
}
