package compute

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// gatewayConfig is the configuration file the gateway process inside the VM
// parses at startup. The key layout (gateway.token, models[].apiKey) is a
// stable contract with the gateway software.
type gatewayConfig struct {
	Gateway gatewaySection `yaml:"gateway"`
}

type gatewaySection struct {
	Token       string                   `yaml:"token"`
	Bind        string                   `yaml:"bind"`
	ControlUI   controlUIConfig          `yaml:"controlUi"`
	Channels    map[string]channelConfig `yaml:"channels"`
	GroupPolicy string                   `yaml:"groupPolicy"`
	Models      []modelConfig            `yaml:"models"`
}

type controlUIConfig struct {
	AllowInsecureAuth bool `yaml:"allowInsecureAuth"`
}

type channelConfig struct {
	Enabled bool `yaml:"enabled"`
}

type modelConfig struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"apiKey"`
	Default  bool   `yaml:"default"`
}

// buildStartupScript renders the VM boot script: system packages, the
// gateway runtime, a dedicated service account, the gateway configuration
// embedding the access token and model credential, and a supervised systemd
// unit.
func buildStartupScript(gatewayToken, apiKey string) (string, error) {
	cfg := gatewayConfig{
		Gateway: gatewaySection{
			Token: gatewayToken,
			Bind:  "lan",
			ControlUI: controlUIConfig{
				AllowInsecureAuth: true,
			},
			Channels: map[string]channelConfig{
				"whatsapp": {Enabled: true},
			},
			GroupPolicy: "open",
			Models: []modelConfig{
				{
					ID:       "anthropic/claude-sonnet-4-6",
					Provider: "anthropic",
					APIKey:   apiKey,
					Default:  true,
				},
			},
		},
	}

	configYAML, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal gateway config: %w", err)
	}

	return fmt.Sprintf(startupScriptTemplate, string(configYAML)), nil
}

// The CFGEOF heredoc is quoted so the embedded config is written verbatim.
const startupScriptTemplate = `#!/bin/bash
set -euo pipefail
export DEBIAN_FRONTEND=noninteractive

LOG="/var/log/openclaw-setup.log"
exec > >(tee -a "$LOG") 2>&1
echo "=== OpenClaw setup started at $(date) ==="

# System updates
apt-get update -y
apt-get upgrade -y
apt-get install -y curl git build-essential

# Install Node.js 22 LTS
curl -fsSL https://deb.nodesource.com/setup_22.x | bash -
apt-get install -y nodejs

# Install OpenClaw globally
npm install -g openclaw

# Create openclaw user
if ! id openclaw &>/dev/null; then
  useradd -m -s /bin/bash openclaw
fi

# Setup directories
sudo -u openclaw mkdir -p /home/openclaw/.openclaw/workspace

# Write gateway config
cat > /home/openclaw/.openclaw/config.yaml << 'CFGEOF'
%sCFGEOF

chown openclaw:openclaw /home/openclaw/.openclaw/config.yaml

# Create systemd service
cat > /etc/systemd/system/openclaw.service << 'SVCEOF'
[Unit]
Description=OpenClaw Gateway
After=network.target

[Service]
Type=simple
User=openclaw
WorkingDirectory=/home/openclaw
ExecStart=/usr/bin/node /usr/lib/node_modules/openclaw/dist/entry.js gateway run
Restart=always
RestartSec=5
Environment=HOME=/home/openclaw
Environment=NODE_ENV=production
Environment=XDG_CONFIG_HOME=/home/openclaw/.openclaw

[Install]
WantedBy=multi-user.target
SVCEOF

systemctl daemon-reload
systemctl enable openclaw
systemctl start openclaw

echo "=== OpenClaw setup completed at $(date) ==="
`
