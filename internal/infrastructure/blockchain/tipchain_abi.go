package blockchain

// TipChainABI covers the views and events the indexer consumes
const TipChainABI = `[
  {"type":"event","name":"ProfileCreated","anonymous":false,"inputs":[
    {"name":"creator","type":"address","indexed":true},
    {"name":"username","type":"string","indexed":false}]},
  {"type":"event","name":"ProfileUpdated","anonymous":false,"inputs":[
    {"name":"creator","type":"address","indexed":true},
    {"name":"username","type":"string","indexed":false}]},
  {"type":"event","name":"TipSent","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"token","type":"address","indexed":false},
    {"name":"message","type":"string","indexed":false},
    {"name":"tipIndex","type":"uint256","indexed":false}]},
  {"type":"function","name":"creatorProfiles","stateMutability":"view",
    "inputs":[{"name":"","type":"address"}],
    "outputs":[
      {"name":"username","type":"string"},
      {"name":"bio","type":"string"},
      {"name":"avatarURI","type":"string"},
      {"name":"totalTipsReceived","type":"uint256"},
      {"name":"tipCount","type":"uint256"},
      {"name":"exists","type":"bool"}]},
  {"type":"function","name":"getCreatorSocials","stateMutability":"view",
    "inputs":[{"name":"creator","type":"address"}],
    "outputs":[{"name":"","type":"string[]"}]},
  {"type":"function","name":"getAllCreators","stateMutability":"view",
    "inputs":[],
    "outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getTip","stateMutability":"view",
    "inputs":[{"name":"","type":"uint256"}],
    "outputs":[
      {"name":"from","type":"address"},
      {"name":"to","type":"address"},
      {"name":"amount","type":"uint256"},
      {"name":"token","type":"address"},
      {"name":"timestamp","type":"uint256"},
      {"name":"message","type":"string"}]}
]`
